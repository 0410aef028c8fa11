// Package registry remembers which chunk directories are complete and which
// source content they were cut from.
//
// Records are keyed by chunk directory, so the same video chunked into
// several directories (one per chunker or output name) keeps one record each.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"vidchunk/chunkdir"
	"vidchunk/chunker"
	"vidchunk/statestore"
)

// FileName is the state file used by the file backend.
const FileName = "processed_videos.json"

// Record describes a finished chunk directory.
type Record struct {
	Hash           string       `json:"hash"`
	ChunkDir       string       `json:"chunk_dir"`
	Mode           chunker.Mode `json:"mode"`
	FramesPerChunk int          `json:"frames_per_chunk"`
	TargetFPS      float64      `json:"target_fps,omitempty"`
	ChunkCount     int          `json:"chunk_count"`
	TotalFrames    int          `json:"total_frames"`
}

// Matches reports whether the record was produced with the given settings.
func (r *Record) Matches(mode chunker.Mode, framesPerChunk int, targetFPS float64) bool {
	if r.Mode != mode || r.FramesPerChunk != framesPerChunk {
		return false
	}
	return mode != chunker.ModeStretch || r.TargetFPS == targetFPS
}

// Registry maps chunk directories to the records describing them.
type Registry struct {
	store  statestore.Backend
	logger *slog.Logger
}

// New creates a registry over store.
func New(store statestore.Backend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// Lookup returns the record for dir if the directory still holds the
// recorded chunks. Stale records are deleted. Unreadable state is logged
// and treated as absent.
func (r *Registry) Lookup(ctx context.Context, dir string) (*Record, bool, error) {
	var rec Record
	found, err := statestore.GetJSON(ctx, r.store, dir, &rec)
	if err != nil {
		r.logger.Warn("processed registry unreadable", "dir", dir, "err", err)
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	if rec.ChunkDir == "" {
		rec.ChunkDir = dir
	}

	if reason := r.stale(&rec); reason != "" {
		r.logger.Info("removing stale registry entry", "hash", rec.Hash, "dir", dir, "reason", reason)
		if err := r.store.Delete(ctx, dir); err != nil {
			return nil, false, fmt.Errorf("prune registry entry %s: %w", dir, err)
		}
		return nil, false, nil
	}
	return &rec, true, nil
}

// Find returns a live record for content hash, whichever chunker produced
// it. Directories are visited in sorted order; stale records met on the way
// are pruned.
func (r *Registry) Find(ctx context.Context, hash string) (*Record, bool, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		r.logger.Warn("processed registry unreadable", "err", err)
		return nil, false, nil
	}
	sort.Strings(keys)

	for _, dir := range keys {
		var rec Record
		found, err := statestore.GetJSON(ctx, r.store, dir, &rec)
		if err != nil || !found || rec.Hash != hash {
			continue
		}
		live, ok, err := r.Lookup(ctx, dir)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return live, true, nil
		}
	}
	return nil, false, nil
}

// Reusable returns the live record for dir only when it holds hash's content
// and was produced with the same mode, chunk size and (for stretch) target
// rate.
func (r *Registry) Reusable(ctx context.Context, hash, dir string, mode chunker.Mode, framesPerChunk int, targetFPS float64) (*Record, bool, error) {
	rec, ok, err := r.Lookup(ctx, dir)
	if err != nil || !ok {
		return nil, false, err
	}
	if rec.Hash != hash || !rec.Matches(mode, framesPerChunk, targetFPS) {
		r.logger.Debug("registry entry has different settings", "dir", dir,
			"mode", rec.Mode, "frames_per_chunk", rec.FramesPerChunk)
		return nil, false, nil
	}
	return rec, true, nil
}

// Register stores rec under its chunk directory, replacing any earlier record.
func (r *Registry) Register(ctx context.Context, rec Record) error {
	if rec.ChunkDir == "" {
		return fmt.Errorf("register %s: chunk directory is required", rec.Hash)
	}
	if err := statestore.PutJSON(ctx, r.store, rec.ChunkDir, rec); err != nil {
		return fmt.Errorf("register %s: %w", rec.ChunkDir, err)
	}
	return nil
}

// Forget removes the record for dir.
func (r *Registry) Forget(ctx context.Context, dir string) error {
	if err := r.store.Delete(ctx, dir); err != nil {
		return fmt.Errorf("forget %s: %w", dir, err)
	}
	return nil
}

// stale returns a non-empty reason when rec no longer describes files on disk.
func (r *Registry) stale(rec *Record) string {
	info, err := os.Stat(rec.ChunkDir)
	if err != nil || !info.IsDir() {
		return "chunk directory no longer exists"
	}
	n, err := chunkdir.Count(rec.ChunkDir)
	if err != nil {
		return err.Error()
	}
	if n == 0 {
		return "no chunks found"
	}
	if rec.ChunkCount > 0 && n != rec.ChunkCount {
		return fmt.Sprintf("found %d chunks, expected %d", n, rec.ChunkCount)
	}
	return ""
}
