package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.MaxIterations != 5 {
		t.Errorf("expected default max_iterations 5, got %d", cfg.Gateway.MaxIterations)
	}
	if cfg.Gateway.PlanMinSteps != 3 || cfg.Gateway.PlanMaxSteps != 7 {
		t.Errorf("expected default plan bounds [3,7], got [%d,%d]", cfg.Gateway.PlanMinSteps, cfg.Gateway.PlanMaxSteps)
	}
	if cfg.Skills.Dir != "./skills" {
		t.Errorf("expected default skills dir, got %q", cfg.Skills.Dir)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %q", cfg.LLM.Provider)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default server addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skillgate.yaml")
	content := `
log:
  level: debug
  format: json
llm:
  provider: openai
  model: gpt-4o-mini
  base_url: https://api.openai.com/v1
  fallback:
    provider: ollama
    model: llama3.2
    base_url: http://localhost:11434
gateway:
  max_iterations: 8
skills:
  dir: /srv/skills
tools:
  - name: web
    transport: http
    url: http://localhost:9090/mcp
  - name: files
    transport: stdio
    command: mcp-files
    args: ["--root", "/data"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log config not applied: %+v", cfg.Log)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model override, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Fallback.Provider != "ollama" || cfg.LLM.Fallback.Model != "llama3.2" {
		t.Errorf("fallback config not applied: %+v", cfg.LLM.Fallback)
	}
	if cfg.Gateway.MaxIterations != 8 {
		t.Errorf("expected max_iterations 8, got %d", cfg.Gateway.MaxIterations)
	}
	// Defaults survive partial files.
	if cfg.Gateway.PlanMaxSteps != 7 {
		t.Errorf("expected default plan_max_steps 7, got %d", cfg.Gateway.PlanMaxSteps)
	}
	if len(cfg.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(cfg.Tools))
	}
	if cfg.Tools[0].Name != "web" || cfg.Tools[0].Transport != "http" {
		t.Errorf("unexpected first tool: %+v", cfg.Tools[0])
	}
	if cfg.Tools[1].Command != "mcp-files" || len(cfg.Tools[1].Args) != 2 {
		t.Errorf("unexpected second tool: %+v", cfg.Tools[1])
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SKILLGATE_LLM_MODEL", "llama3.2")
	t.Setenv("SKILLGATE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "llama3.2" {
		t.Errorf("expected env model override, got %q", cfg.LLM.Model)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env log level override, got %q", cfg.Log.Level)
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skillgate.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewWatcher([]string{path}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}

	changed := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx := t.Context()
	w.Start(ctx)
	defer w.Stop()

	// mtime resolution can be coarse; rewrite with a future timestamp.
	if err := os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Log.Level != "error" {
			t.Errorf("expected reloaded level error, got %q", cfg.Log.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherDetectsNestedManifestEdit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "skillgate.yaml")
	if err := os.WriteFile(cfgPath, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	skillsRoot := filepath.Join(dir, "skills")
	skillDir := filepath.Join(skillsRoot, "qa-assistant")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	manifest := filepath.Join(skillDir, "SKILL.md")
	if err := os.WriteFile(manifest, []byte("---\nname: qa-assistant\ndescription: v1\n---\nBody.\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := NewWatcher([]string{cfgPath, skillsRoot}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	changed := make(chan struct{}, 1)
	w.OnChange(func(*Config) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	w.Start(t.Context())
	defer w.Stop()

	// Editing a manifest leaves the skills root's own mtime untouched; only
	// the nested file moves.
	if err := os.WriteFile(manifest, []byte("---\nname: qa-assistant\ndescription: v2\n---\nBody.\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(manifest, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for nested manifest change")
	}
}

func TestReloadableConfig(t *testing.T) {
	cfg1, _ := Load("")
	rc := NewReloadableConfig(cfg1)
	if rc.Gateway().MaxIterations != 5 {
		t.Fatalf("unexpected initial gateway config")
	}
	cfg2 := *cfg1
	cfg2.Gateway.MaxIterations = 9
	rc.Update(&cfg2)
	if rc.Gateway().MaxIterations != 9 {
		t.Fatalf("expected updated gateway config")
	}
}
