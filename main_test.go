package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI runs vidchunk with an isolated config file and output root.
func runCLI(t *testing.T, root, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "vidchunk.yaml")
	if err := os.WriteFile(cfgPath, []byte("output_root: "+root+"\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var stdout, stderr bytes.Buffer
	full := append([]string{"vidchunk", "--config", cfgPath}, args...)
	err := newCommand(strings.NewReader(stdin), &stdout, &stderr).Run(context.Background(), full)
	return stdout.String(), err
}

func TestCLI_NodeSchema(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "", "node", "schema")
	if err != nil {
		t.Fatalf("node schema: %v", err)
	}

	var schemas []struct {
		ID string `json:"node_id"`
	}
	if err := json.Unmarshal([]byte(out), &schemas); err != nil {
		t.Fatalf("Expected JSON schemas, got %q: %v", out, err)
	}
	if len(schemas) != 8 {
		t.Errorf("Expected 8 nodes, got %d", len(schemas))
	}
}

func TestCLI_NodeRun(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), `{"value": 7}`, "node", "run", "IntToString")
	if err != nil {
		t.Fatalf("node run: %v", err)
	}
	if !strings.Contains(out, `"string": "7"`) {
		t.Errorf("Unexpected output %q", out)
	}

	if _, err := runCLI(t, t.TempDir(), `{}`, "node", "run", "NoSuchNode"); err == nil {
		t.Error("Expected error for unknown node")
	}
}

func TestCLI_Batch(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	for i, want := range []string{"a.mp4", "b.mp4", "a.mp4"} {
		out, err := runCLI(t, root, "", "batch", "--label", "cli", dir)
		if err != nil {
			t.Fatalf("batch call %d: %v", i, err)
		}
		var res struct {
			Filename     string `json:"filename"`
			CurrentIndex int    `json:"current_index"`
			TotalVideos  int    `json:"total_videos"`
		}
		if err := json.Unmarshal([]byte(out), &res); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		if res.Filename != want || res.CurrentIndex != i%2 || res.TotalVideos != 2 {
			t.Errorf("call %d: expected %s@%d, got %+v", i, want, i%2, res)
		}
	}

	if _, err := os.Stat(filepath.Join(root, "video_batch_state.json")); err != nil {
		t.Errorf("Expected state file under output root: %v", err)
	}

	if _, err := runCLI(t, root, "", "batch", "--label", "cli", "--reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, err := runCLI(t, root, "", "batch", "--label", "cli", dir)
	if err != nil {
		t.Fatalf("batch after reset: %v", err)
	}
	if !strings.Contains(out, `"current_index": 0`) {
		t.Errorf("Expected index 0 after reset, got %s", out)
	}
}

func TestCLI_ConfigShow(t *testing.T) {
	root := t.TempDir()
	out, err := runCLI(t, root, "", "--frames-per-chunk", "33", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "frames_per_chunk: 33") || !strings.Contains(out, "output_root: "+root) {
		t.Errorf("Unexpected config output:\n%s", out)
	}
}

func TestCLI_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidchunk.yaml")
	if _, err := runCLI(t, t.TempDir(), "", "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file: %v", err)
	}
	if _, err := runCLI(t, t.TempDir(), "", "config", "init", path); err == nil {
		t.Error("Expected refusal to overwrite without --force")
	}
}

func TestCLI_VideoArgumentRequired(t *testing.T) {
	if _, err := runCLI(t, t.TempDir(), "", "chunk"); err == nil {
		t.Error("Expected error without a video argument")
	}
}
