package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/scour/pkg/scour/filter"
)

func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return tempDir
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	configDir := filepath.Join(home, ".config", "scour")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !slices.Equal(cfg.Targets, DefaultTargets) {
		t.Errorf("Targets = %v, want %v", cfg.Targets, DefaultTargets)
	}
	if cfg.Policy.MinAge != DefaultMinAge {
		t.Errorf("Policy.MinAge = %q, want %q", cfg.Policy.MinAge, DefaultMinAge)
	}
	if !cfg.Policy.Recursive || !cfg.Policy.RemoveEmptyDirs {
		t.Errorf("Policy = %+v, want recursive with pruning", cfg.Policy)
	}
	if cfg.Monitor.Limit != DefaultMonitorLimit {
		t.Errorf("Monitor.Limit = %d, want %d", cfg.Monitor.Limit, DefaultMonitorLimit)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.Path != DefaultHistoryPath() {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, DefaultHistoryPath())
	}
	if cfg.Backup.Enabled {
		t.Error("Backup.Enabled = true, want false")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Components["sampler"] != "warn" {
		t.Errorf("Logging.Components[sampler] = %q, want warn", cfg.Logging.Components["sampler"])
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `
targets: [chrome-cache, "*-temp"]
custom_targets:
  - name: builds
    path: ~/builds/tmp
policy:
  min_age: 2w
  recursive: false
  extensions: [tmp, "@log"]
  max_files: 50
monitor:
  rank: cpu
  limit: 10
history:
  enabled: false
  path: ~/scour-history
  retention_days: 7
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !slices.Equal(cfg.Targets, []string{"chrome-cache", "*-temp"}) {
		t.Errorf("Targets = %v", cfg.Targets)
	}
	if len(cfg.CustomTargets) != 1 || cfg.CustomTargets[0].Name != "builds" {
		t.Errorf("CustomTargets = %+v", cfg.CustomTargets)
	}
	if cfg.Policy.MinAge != "2w" || cfg.Policy.Recursive || cfg.Policy.MaxFiles != 50 {
		t.Errorf("Policy = %+v", cfg.Policy)
	}
	if cfg.Monitor.Rank != "cpu" || cfg.Monitor.Limit != 10 {
		t.Errorf("Monitor = %+v", cfg.Monitor)
	}
	if cfg.History.Enabled || cfg.History.RetentionDays != 7 {
		t.Errorf("History = %+v", cfg.History)
	}
	if want := filepath.Join(home, "scour-history"); cfg.History.Path != want {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, want)
	}
	// untouched keys keep their defaults
	if cfg.Monitor.Interval != DefaultMonitorInterval {
		t.Errorf("Monitor.Interval = %q, want %q", cfg.Monitor.Interval, DefaultMonitorInterval)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := isolate(t)
	xdgDir := filepath.Join(tempDir, "xdg")
	if err := os.MkdirAll(filepath.Join(xdgDir, "scour"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(xdgDir, "scour", "config.yaml"), []byte("policy:\n  max_files: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.MaxFiles != 3 {
		t.Errorf("Policy.MaxFiles = %d, want 3", cfg.Policy.MaxFiles)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("SCOUR_POLICY_MIN_AGE", "3d")
	t.Setenv("SCOUR_MONITOR_RANK", "cpu")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.MinAge != "3d" {
		t.Errorf("Policy.MinAge = %q, want 3d", cfg.Policy.MinAge)
	}
	if cfg.Monitor.Rank != "cpu" {
		t.Errorf("Monitor.Rank = %q, want cpu", cfg.Monitor.Rank)
	}
}

func TestLoadFile_Explicit(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("policy:\n  min_age: 1mo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Policy.MinAge != "1mo" {
		t.Errorf("Policy.MinAge = %q, want 1mo", cfg.Policy.MinAge)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) error = nil, want error")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "policy: [unclosed\n")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestSetup_FlagOverride(t *testing.T) {
	isolate(t)
	v := viper.New()
	if err := Setup(v, ""); err != nil {
		t.Fatal(err)
	}
	v.Set("policy.max_files", 9)

	cfg, err := Decode(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Policy.MaxFiles != 9 {
		t.Errorf("Policy.MaxFiles = %d, want 9", cfg.Policy.MaxFiles)
	}
}

func TestPolicyConfig_Build(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PolicyConfig
		wantAge time.Duration
		wantErr bool
	}{
		{"days", PolicyConfig{MinAge: "7d", Recursive: true}, 7 * filter.Day, false},
		{"go duration", PolicyConfig{MinAge: "36h"}, 36 * time.Hour, false},
		{"zero", PolicyConfig{MinAge: "0"}, 0, false},
		{"bad age", PolicyConfig{MinAge: "soon"}, 0, true},
		{"negative max", PolicyConfig{MinAge: "1d", MaxFiles: -1}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.cfg.Build()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Build() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if p.MinFileAge != tt.wantAge {
				t.Errorf("MinFileAge = %v, want %v", p.MinFileAge, tt.wantAge)
			}
			if p.Recursive != tt.cfg.Recursive {
				t.Errorf("Recursive = %v, want %v", p.Recursive, tt.cfg.Recursive)
			}
		})
	}
}

func TestPolicyConfig_BuildNegativeMaxIsInvalidPolicy(t *testing.T) {
	_, err := PolicyConfig{MinAge: "1d", MaxFiles: -1}.Build()
	if !errors.Is(err, filter.ErrInvalidPolicy) {
		t.Errorf("Build() error = %v, want ErrInvalidPolicy", err)
	}
}

func TestPolicyConfig_BuildExtensions(t *testing.T) {
	p, err := PolicyConfig{MinAge: "1d", Extensions: []string{".TMP", "tmp"}}.Build()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(p.Extensions, []string{"tmp"}) {
		t.Errorf("Extensions = %v, want [tmp]", p.Extensions)
	}
}

func TestMonitorConfig_IntervalDuration(t *testing.T) {
	d, err := MonitorConfig{Interval: "2s"}.IntervalDuration()
	if err != nil || d != 2*time.Second {
		t.Errorf("IntervalDuration() = %v, %v", d, err)
	}
	if _, err := (MonitorConfig{Interval: "10ms"}).IntervalDuration(); err == nil {
		t.Error("IntervalDuration(10ms) error = nil, want error")
	}
	if _, err := (MonitorConfig{Interval: "fast"}).IntervalDuration(); err == nil {
		t.Error("IntervalDuration(fast) error = nil, want error")
	}
}

func TestLoggingConfig_Build(t *testing.T) {
	lc := LoggingConfig{
		Level:      "debug",
		Rotation:   RotationConfig{MaxSize: "20MB", MaxAge: 7, MaxBackups: 2, Compress: false},
		Components: map[string]string{"engine": "warn"},
	}
	got, err := lc.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got.Rotation.MaxSizeMB != 19 {
		t.Errorf("MaxSizeMB = %d, want 19", got.Rotation.MaxSizeMB)
	}
	if got.Rotation.MaxAgeDays != 7 || got.Rotation.MaxBackups != 2 || got.Rotation.Compress {
		t.Errorf("Rotation = %+v", got.Rotation)
	}
	if got.Level != "debug" || got.Components["engine"] != "warn" {
		t.Errorf("Config = %+v", got)
	}

	if _, err := (LoggingConfig{Rotation: RotationConfig{MaxSize: "huge"}}).Build(); err == nil {
		t.Error("Build() error = nil, want error for bad max_size")
	}
}

func TestConfigDir(t *testing.T) {
	home := isolate(t)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".config", "scour"); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, _ = ConfigDir()
	if want := filepath.Join("/xdg", "scour"); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}

func TestWriteDefault(t *testing.T) {
	isolate(t)

	path, created, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("default config is not valid YAML: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault error = %v", err)
	}
	if cfg.Policy.MinAge != DefaultMinAge || !slices.Equal(cfg.Targets, DefaultTargets) {
		t.Errorf("written config does not round-trip: %+v", cfg)
	}
	if !slices.Equal(cfg.Policy.Exclude, DefaultExclusions) {
		t.Errorf("Policy.Exclude = %v, want %v", cfg.Policy.Exclude, DefaultExclusions)
	}

	_, created, err = WriteDefault()
	if err != nil || created {
		t.Errorf("second WriteDefault() = %v, %v; want existing file kept", created, err)
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := ExpandPath("~/x")
	if err != nil || got != filepath.Join(home, "x") {
		t.Errorf("ExpandPath(~/x) = %q, %v", got, err)
	}
	got, _ = ExpandPath("/abs")
	if got != "/abs" {
		t.Errorf("ExpandPath(/abs) = %q", got)
	}
}
