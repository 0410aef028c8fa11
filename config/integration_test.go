package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var (
		cfg     *Config
		loadErr error
	)
	cmd := &cli.Command{
		Name:  "vidchunk",
		Flags: Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, loadErr = Load(cmd)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"vidchunk"}, args...)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return cfg, loadErr
}

func TestLoad_AllLayersPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "vidchunk.yaml")

	// File sets workers and CRF; flags override workers only
	configContent := `workers: 4
output_root: /from/file
video:
  crf: 23
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config: %v", err)
	}

	cfg, err := load(t, "--config", configPath, "--workers", "8")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Workers: CLI should win over file (8, not 4)
	if cfg.Workers != 8 {
		t.Errorf("Expected workers 8 (from CLI), got %d", cfg.Workers)
	}
	// CRF and output root: file should win over defaults
	if cfg.Video.CRF != 23 {
		t.Errorf("Expected CRF 23 (from file), got %d", cfg.Video.CRF)
	}
	if cfg.OutputRoot != "/from/file" {
		t.Errorf("Expected output root from file, got %s", cfg.OutputRoot)
	}
	// Preset: default survives
	if cfg.Video.Preset != "medium" {
		t.Errorf("Expected default preset, got %s", cfg.Video.Preset)
	}
}

func TestLoad_EnvConfigPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(configPath, []byte("chunk:\n  frames_per_chunk: 25\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("VIDCHUNK_CONFIG", configPath)

	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chunk.FramesPerChunk != 25 {
		t.Errorf("Expected frames per chunk 25 from env config, got %d", cfg.Chunk.FramesPerChunk)
	}
}

func TestLoad_AutoDetectWorkers(t *testing.T) {
	cfg, err := load(t, "--config", writeConfig(t, "workers: 1\n"), "--workers", "0")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), cfg.Workers)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := load(t, "--config", writeConfig(t, "workers: 1\n"), "--frames-per-chunk", "0", "--crf", "99")
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "frames per chunk") || !strings.Contains(err.Error(), "CRF") {
		t.Errorf("Expected both problems reported, got: %v", err)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to load config file") {
		t.Errorf("Expected load error, got %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidchunk.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}
