package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Arena    ArenaConfig    `toml:"arena"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret"`
	TokenExpiryMin    int    `toml:"token_expiry_min"`
	AdminPasswordHash string `toml:"admin_password_hash"`
}

// ArenaConfig holds rating-side defaults. A cap of 0 means unlimited;
// claim_ttl_min of 0 disables stale-claim expiry.
type ArenaConfig struct {
	TargetJudgments int `toml:"target_judgments"`
	SoftCap         int `toml:"soft_cap"`
	TotalCap        int `toml:"total_cap"`
	ClaimTTLMin     int `toml:"claim_ttl_min"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "data/arena.db",
		},
		Auth: AuthConfig{
			JWTSecret:      "change-me-in-production",
			TokenExpiryMin: 1440, // 24h
		},
		Arena: ArenaConfig{
			TargetJudgments: 3,
			SoftCap:         1000,
			TotalCap:        0,
			ClaimTTLMin:     0,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
