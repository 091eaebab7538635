package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds process settings loaded from the environment.
type ServerConfig struct {
	Addr          string        // HTTP listen address (websocket, api, static files)
	GRPCAddr      string        // gRPC listen address, "off" in the environment disables the frame stream service
	PublicURL     string        // Base URL used in generated embed snippets
	StaticDir     string        // Serve the browser client from this directory instead of the embedded copy
	ConfigFile    string        // Optional toml/yaml/json animation config
	FrameInterval time.Duration // Paint rate of streamed frames, independent of the simulation tick
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
	LogLevel      slog.Level
}

// LoadServerConfig reads .env (if present) and then YAPA_* variables.
func LoadServerConfig() ServerConfig {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	sc := ServerConfig{
		Addr:          getEnv("YAPA_ADDR", ":8080"),
		GRPCAddr:      getEnv("YAPA_GRPC_ADDR", ":9090"),
		PublicURL:     getEnv("YAPA_PUBLIC_URL", "http://localhost:8080"),
		StaticDir:     getEnv("YAPA_STATIC_DIR", ""),
		ConfigFile:    getEnv("YAPA_CONFIG", ""),
		FrameInterval: parseDuration(getEnv("YAPA_FRAME_INTERVAL", "33ms"), 33*time.Millisecond),
		ReadTimeout:   parseDuration(getEnv("YAPA_READ_TIMEOUT", "15s"), 15*time.Second),
		WriteTimeout:  parseDuration(getEnv("YAPA_WRITE_TIMEOUT", "15s"), 15*time.Second),
		CORSOrigins:   splitList(getEnv("YAPA_CORS_ORIGINS", "*")),
		LogLevel:      parseLevel(getEnv("YAPA_LOG_LEVEL", "info")),
	}
	if sc.GRPCAddr == "off" {
		sc.GRPCAddr = ""
	}
	return sc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
