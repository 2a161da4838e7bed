// Package mcp exposes the arena's analysis surface to MCP clients: stats,
// coverage, recorded judgments and maintenance. The rating flow itself
// stays on HTTP so blinding guarantees hold.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/pkg/audit"
	"github.com/hazyhaar/pkg/kit"
	"github.com/hazyhaar/songarena/internal/db"
)

// NewServer creates an MCPServer with all arena tools registered.
func NewServer(database *db.DB, auditLog audit.Logger) *server.MCPServer {
	srv := server.NewMCPServer(
		"songarena",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerArenaStats(srv, database)
	registerPairProgress(srv, database)
	registerQueryProgress(srv, database)
	registerGetPolicy(srv, database)
	registerTaskJudgments(srv, database)
	registerExpireAssignments(srv, database, auditLog)

	return srv
}

// --- arena_stats ---

func registerArenaStats(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	})
	tool := mcp.NewToolWithRawSchema("arena_stats", "Arena-wide counters: queries, systems, pairs, tasks, judgments, raters", schema)

	kit.RegisterMCPTool(srv, tool, func(ctx context.Context, request any) (any, error) {
		return database.Stats()
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &struct{}{}}, nil
	})
}

// --- pair_progress ---

func registerPairProgress(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	})
	tool := mcp.NewToolWithRawSchema("pair_progress", "Judgment coverage per system pair, practice tasks excluded", schema)

	kit.RegisterMCPTool(srv, tool, func(ctx context.Context, request any) (any, error) {
		pairs, err := database.ProgressByPair()
		if err != nil {
			return nil, err
		}
		return map[string]any{"pairs": pairs, "count": len(pairs)}, nil
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &struct{}{}}, nil
	})
}

// --- query_progress ---

func registerQueryProgress(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	})
	tool := mcp.NewToolWithRawSchema("query_progress", "Judgment coverage per evaluation query, practice queries excluded", schema)

	kit.RegisterMCPTool(srv, tool, func(ctx context.Context, request any) (any, error) {
		queries, err := database.ProgressByQuery()
		if err != nil {
			return nil, err
		}
		return map[string]any{"queries": queries, "count": len(queries)}, nil
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &struct{}{}}, nil
	})
}

// --- get_policy ---

func registerGetPolicy(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"version": map[string]string{"type": "string", "description": "Policy version; omit for the active policy"},
		},
	})
	tool := mcp.NewToolWithRawSchema("get_policy", "Retrieve a filtering policy by version, or the active one", schema)

	kit.RegisterMCPTool(srv, tool, func(ctx context.Context, request any) (any, error) {
		r := request.(*getPolicyReq)
		var (
			pol *db.Policy
			err error
		)
		if r.Version == "" {
			pol, err = database.GetActivePolicy()
		} else {
			pol, err = database.GetPolicy(r.Version)
		}
		if errors.Is(err, db.ErrNotFound) {
			return nil, errors.New("no such policy")
		}
		return pol, err
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &getPolicyReq{Version: stringArg(args, "version")}}, nil
	})
}

type getPolicyReq struct {
	Version string `json:"version"`
}

// --- task_judgments ---

func registerTaskJudgments(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]string{"type": "string", "description": "Task ID"},
		},
		"required": []string{"task_id"},
	})
	tool := mcp.NewToolWithRawSchema("task_judgments", "Recorded judgments for a task in submission order, with unblinded system identities", schema)

	kit.RegisterMCPTool(srv, tool, func(ctx context.Context, request any) (any, error) {
		r := request.(*taskJudgmentsReq)
		judgments, err := database.JudgmentsForTask(r.TaskID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"judgments": judgments, "count": len(judgments)}, nil
	}, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &taskJudgmentsReq{TaskID: stringArg(args, "task_id")}}, nil
	})
}

type taskJudgmentsReq struct {
	TaskID string `json:"task_id"`
}

// --- expire_assignments ---

func registerExpireAssignments(srv *server.MCPServer, database *db.DB, auditLog audit.Logger) {
	var endpoint kit.Endpoint = func(ctx context.Context, request any) (any, error) {
		r := request.(*expireReq)
		if r.TTLMinutes <= 0 {
			return nil, errors.New("ttl_minutes must be > 0")
		}
		n, err := database.ExpireStaleAssignments(time.Duration(r.TTLMinutes) * time.Minute)
		if err != nil {
			return nil, err
		}
		return map[string]any{"expired": n, "ttl_minutes": r.TTLMinutes}, nil
	}
	if auditLog != nil {
		endpoint = audit.Middleware(auditLog, "expire_assignments")(endpoint)
	}

	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ttl_minutes": map[string]any{"type": "integer", "description": "Drop uncompleted claims older than this many minutes"},
		},
		"required": []string{"ttl_minutes"},
	})
	tool := mcp.NewToolWithRawSchema("expire_assignments", "Drop stale uncompleted claims, freeing their scheduling slots", schema)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		return &kit.MCPDecodeResult{Request: &expireReq{TTLMinutes: intArg(args, "ttl_minutes", 0)}}, nil
	})
}

type expireReq struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// --- helpers ---

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return def
	}
}
