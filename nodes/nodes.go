// Package nodes exposes the chunkers, batch loaders and helpers as workflow
// nodes: a host-facing schema plus an Execute that takes JSON inputs and
// returns JSON-encodable outputs.
package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"vidchunk/batch"
	"vidchunk/concatenator"
	"vidchunk/pipeline"
)

// StdinHandle is the video handle that stands for bytes read from Env.Stdin.
const StdinHandle = "-"

// Node is one workflow node.
type Node interface {
	Schema() Schema
	Execute(ctx context.Context, inputs json.RawMessage) (any, error)
}

// Env carries the collaborators nodes run against.
type Env struct {
	Pipeline     *pipeline.Pipeline
	Concatenator *concatenator.Concatenator
	VideoBatch   *batch.Loader
	ImageBatch   *batch.Loader

	// Defaults supplies everything a chunker node does not take as input
	// (output root, workers, encoder settings, dry run). Its directory name,
	// chunk size and target rate seed the chunker schema defaults; zero
	// values fall back to the built-in ones.
	Defaults pipeline.Settings
	// StretchOutputDir is the default output_dir of VideoFPSChunker.
	StretchOutputDir string

	// Stdin backs the "-" video handle; nil disables it.
	Stdin   io.Reader
	TempDir string
	Logger  *slog.Logger
}

// Catalog holds every node by ID.
type Catalog struct {
	env   *Env
	nodes map[string]Node
}

// NewCatalog registers all nodes over env.
func NewCatalog(env *Env) *Catalog {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	c := &Catalog{env: env, nodes: make(map[string]Node)}
	for _, n := range []Node{
		&frameExactChunker{env: env},
		&fpsChunker{env: env},
		&batchLoader{env: env, kind: videoBatch},
		&batchLoader{env: env, kind: imageBatch},
		&checkProcessed{env: env},
		&videoInfo{env: env},
		&concatDirectory{env: env},
		intToString{},
	} {
		c.nodes[n.Schema().ID] = n
	}
	return c
}

// IDs returns the registered node IDs in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Schemas returns every node schema ordered by ID.
func (c *Catalog) Schemas() []Schema {
	out := make([]Schema, 0, len(c.nodes))
	for _, id := range c.IDs() {
		out = append(out, c.nodes[id].Schema())
	}
	return out
}

// Lookup returns the node registered under id.
func (c *Catalog) Lookup(id string) (Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Run executes node id with JSON inputs.
func (c *Catalog) Run(ctx context.Context, id string, inputs json.RawMessage) (any, error) {
	n, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("unknown node %q", id)
	}
	c.env.Logger.Debug("node started", "node", id)
	out, err := n.Execute(ctx, inputs)
	if err != nil {
		c.env.Logger.Error("node failed", "node", id, "err", err)
		return nil, err
	}
	c.env.Logger.Debug("node finished", "node", id)
	return out, nil
}

// resolveVideo turns a video handle into a readable path. The returned
// cleanup removes any temporary file and must always be called.
func (e *Env) resolveVideo(handle string) (string, func(), error) {
	noop := func() {}
	if handle == "" {
		return "", noop, fmt.Errorf("video input cannot be empty")
	}
	if handle != StdinHandle {
		if _, err := os.Stat(handle); err != nil {
			return "", noop, fmt.Errorf("video not found: %w", err)
		}
		return handle, noop, nil
	}
	if e.Stdin == nil {
		return "", noop, fmt.Errorf("video handle %q requires stdin, which is not available", StdinHandle)
	}

	path := filepath.Join(e.tempDir(), "vidchunk-"+uuid.NewString()+".mp4")
	f, err := os.Create(path)
	if err != nil {
		return "", noop, fmt.Errorf("create temp video: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			e.Logger.Warn("failed to remove temp video", "path", path, "err", err)
		}
	}

	n, err := io.Copy(f, e.Stdin)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("read video from stdin: %w", err)
	}
	if n == 0 {
		cleanup()
		return "", noop, fmt.Errorf("read video from stdin: no data")
	}
	e.Logger.Debug("video read from stdin", "path", path, "bytes", n)
	return path, cleanup, nil
}

func (e *Env) tempDir() string {
	if e.TempDir != "" {
		return e.TempDir
	}
	return os.TempDir()
}
