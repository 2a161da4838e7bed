package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/pkg/audit"
	"github.com/hazyhaar/songarena/internal/api"
	"github.com/hazyhaar/songarena/internal/auth"
	"github.com/hazyhaar/songarena/internal/config"
	"github.com/hazyhaar/songarena/internal/db"
	"github.com/hazyhaar/songarena/internal/mcp"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "hashpw":
		cmdHashPw(os.Args[2:])
	case "version":
		fmt.Printf("songarena %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`songarena — blinded pairwise judging for song retrieval systems

Usage:
  songarena serve [--config config.toml] [--addr :8080]
  songarena mcp [--config config.toml]
  songarena hashpw <password>
  songarena version
  songarena help

Commands:
  serve     Start the HTTP server
  mcp       Serve the analysis tools over MCP stdio
  hashpw    Hash an admin password for the config file
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin, cfg.Auth.AdminPasswordHash)
	apiHandler := api.New(database, a, cfg.Arena)

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	// Serve static files
	staticFS := http.FileServer(http.Dir("static"))
	mux.Handle("GET /static/", api.NoCacheStatic(http.StripPrefix("/static/", staticFS)))

	// SPA: serve index.html for all non-API, non-static routes
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/index.html")
	})

	log.Printf("songarena %s listening on %s", version, cfg.Server.Addr)
	log.Printf("database: %s", cfg.Database.Path)
	if cfg.Auth.AdminPasswordHash == "" {
		log.Printf("admin login: disabled (no admin_password_hash in config)")
	}

	if err := http.ListenAndServe(cfg.Server.Addr, api.SecurityHeaders(mux)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	auditLog := audit.NewSQLiteLogger(database.DB)
	if err := auditLog.Init(); err != nil {
		log.Fatalf("initializing audit log: %v", err)
	}
	defer auditLog.Close()

	srv := mcp.NewServer(database, auditLog)
	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func cmdHashPw(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: songarena hashpw <password>")
		os.Exit(1)
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}
	fmt.Println(hash)
}
