// Package config loads gateway configuration from defaults, a YAML file
// and SKILLGATE_ environment variables, in that order of precedence.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Skills    SkillsConfig    `koanf:"skills"`
	Tools     []ToolConfig    `koanf:"tools"`
	Audit     AuditConfig     `koanf:"audit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Server    ServerConfig    `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider string `koanf:"provider"` // ollama, openai
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	// Fallback names a secondary backend engaged when the primary fails or
	// its circuit opens. An empty provider disables failover.
	Fallback LLMFallbackConfig `koanf:"fallback"`
}

// LLMFallbackConfig configures the secondary model backend.
type LLMFallbackConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

// GatewayConfig bounds the planning and execution loop.
type GatewayConfig struct {
	MaxIterations int    `koanf:"max_iterations"` // per-step action cap
	PlanMinSteps  int    `koanf:"plan_min_steps"`
	PlanMaxSteps  int    `koanf:"plan_max_steps"`
	StepTimeout   string `koanf:"step_timeout"` // Go duration string
}

type SkillsConfig struct {
	Dir string `koanf:"dir"`
}

// ToolConfig declares one MCP tool server available to the execution loop.
type ToolConfig struct {
	Name      string   `koanf:"name"`
	Transport string   `koanf:"transport"` // stdio, http
	Command   string   `koanf:"command"`
	Args      []string `koanf:"args"`
	URL       string   `koanf:"url"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	DBPath  string `koanf:"db_path"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5-coder:7b-instruct-q5_K_M")
	k.Set("llm.base_url", "http://localhost:11434")

	k.Set("gateway.max_iterations", 5)
	k.Set("gateway.plan_min_steps", 3)
	k.Set("gateway.plan_max_steps", 7)
	k.Set("gateway.step_timeout", "120s")

	k.Set("skills.dir", "./skills")

	k.Set("audit.enabled", false)
	k.Set("audit.db_path", "skillgate-audit.db")

	k.Set("telemetry.exporter", "stdout")

	k.Set("server.addr", ":8080")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (SKILLGATE_LLM_PROVIDER -> llm.provider)
	if err := k.Load(env.Provider("SKILLGATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "SKILLGATE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
