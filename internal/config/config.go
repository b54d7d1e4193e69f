// Package config reads process settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string // HONE_HTTP_ADDR, or :$PORT
	GRPCAddr     string // HONE_GRPC_ADDR; empty disables gRPC
	RulesDir     string // HONE_RULES_DIR; empty uses only the embedded rules
	Profile      string // HONE_PROFILE
	WatchRules   bool   // HONE_WATCH_RULES
	LogLevel     string // HONE_LOG_LEVEL
	LogFormat    string // HONE_LOG_FORMAT: console | json
	MaxBodyBytes int64  // HONE_MAX_BODY_BYTES
	ShutdownWait time.Duration
}

// LoadEnvFiles loads the first .env files that exist. Variables already in
// the environment win.
func LoadEnvFiles(paths ...string) []string {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			loaded = append(loaded, p)
		}
	}
	return loaded
}

func Load() *Config {
	httpAddr := os.Getenv("HONE_HTTP_ADDR")
	if httpAddr == "" {
		// Prefer PORT (container platforms) then the default
		if p := os.Getenv("PORT"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				httpAddr = ":" + p
			}
		}
	}
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	grpcAddr, ok := os.LookupEnv("HONE_GRPC_ADDR")
	if !ok {
		grpcAddr = ":9090"
	}
	level := strings.ToLower(os.Getenv("HONE_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.ToLower(os.Getenv("HONE_LOG_FORMAT"))
	if format == "" {
		format = "console"
	}
	maxBody := int64(1 << 20)
	if s := os.Getenv("HONE_MAX_BODY_BYTES"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			maxBody = v
		}
	}
	wait := 10 * time.Second
	if s := os.Getenv("HONE_SHUTDOWN_WAIT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			wait = d
		}
	}
	watch, _ := strconv.ParseBool(os.Getenv("HONE_WATCH_RULES"))
	return &Config{
		HTTPAddr:     httpAddr,
		GRPCAddr:     grpcAddr,
		RulesDir:     os.Getenv("HONE_RULES_DIR"),
		Profile:      os.Getenv("HONE_PROFILE"),
		WatchRules:   watch,
		LogLevel:     level,
		LogFormat:    format,
		MaxBodyBytes: maxBody,
		ShutdownWait: wait,
	}
}
