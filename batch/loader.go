// Package batch walks a directory one file per call, remembering its position
// per label across restarts.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vidchunk/statestore"
)

// ErrNoMatches is returned when no file in the directory matches the pattern.
var ErrNoMatches = errors.New("no files match pattern")

// Record is the persisted cursor for one label.
type Record struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern"`
	Index   int    `json:"index"`
}

// Selection is the file chosen by one Next call.
type Selection struct {
	Path     string // absolute path of the selected file
	Filename string // base name
	Index    int    // position consumed by this call
	Total    int    // number of matching files
}

// Loader hands out matching files in sorted order, one per call.
type Loader struct {
	store  statestore.Backend
	lister Lister
	exts   []string
	logger *slog.Logger
}

// NewLoader creates a loader over store. exts restricts accepted extensions.
func NewLoader(store statestore.Backend, lister Lister, exts []string, logger *slog.Logger) *Loader {
	if lister == nil {
		lister = DirLister{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, lister: lister, exts: exts, logger: logger}
}

// List returns the sorted matches for dir and pattern without touching state.
func (l *Loader) List(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	names, err := l.lister.List(dir, Recursive(pattern))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	matches, err := Match(names, pattern, l.exts)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return matches, nil
}

// Next selects the file at the label's stored index and advances the index.
//
// The index resets to 0 when dir or pattern differ from the stored record and
// wraps to 0 when files were removed. The advanced index is written before
// Next returns; a write failure is returned and no file is selected.
func (l *Loader) Next(ctx context.Context, dir, pattern, label string) (*Selection, error) {
	matches, err := l.List(dir, pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrNoMatches, pattern, dir)
	}

	index := 0
	var rec Record
	found, err := statestore.GetJSON(ctx, l.store, label, &rec)
	switch {
	case err != nil:
		l.logger.Warn("batch state unreadable, starting over", "label", label, "err", err)
	case !found:
		l.logger.Debug("new batch label", "label", label)
	case rec.Path != dir || rec.Pattern != pattern:
		l.logger.Info("path or pattern changed, resetting counter", "label", label)
	default:
		index = rec.Index
	}

	if index < 0 || index >= len(matches) {
		index = 0
	}

	next := Record{Path: dir, Pattern: pattern, Index: (index + 1) % len(matches)}
	if err := statestore.PutJSON(ctx, l.store, label, next); err != nil {
		return nil, fmt.Errorf("save batch state for %q: %w", label, err)
	}

	abs, err := filepath.Abs(filepath.Join(dir, filepath.FromSlash(matches[index])))
	if err != nil {
		return nil, err
	}

	l.logger.Info("batch item selected", "label", label, "file", filepath.Base(abs),
		"position", fmt.Sprintf("%d/%d", index+1, len(matches)))

	return &Selection{
		Path:     abs,
		Filename: filepath.Base(abs),
		Index:    index,
		Total:    len(matches),
	}, nil
}

// Reset forgets the cursor for label.
func (l *Loader) Reset(ctx context.Context, label string) error {
	return l.store.Delete(ctx, label)
}
