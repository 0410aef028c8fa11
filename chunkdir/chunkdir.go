// Package chunkdir inspects and cleans directories of numbered chunk files.
package chunkdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Ext is the chunk container extension.
const Ext = ".mp4"

// Ordinal parses "<n>.mp4" and reports whether name is an ordinal chunk file.
func Ordinal(name string) (int, bool) {
	base, ok := strings.CutSuffix(name, Ext)
	if !ok || base == "" {
		return 0, false
	}
	for _, r := range base {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sort orders names numerically when both are ordinal chunk files, so
// "10.mp4" follows "9.mp4". Other names sort lexicographically after them.
func Sort(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := filepath.Base(names[i]), filepath.Base(names[j])
		na, oka := Ordinal(a)
		nb, okb := Ordinal(b)
		switch {
		case oka && okb:
			return na < nb
		case oka != okb:
			return oka
		default:
			return a < b
		}
	})
}

// List returns the .mp4 file names in dir in chunk order.
// A missing directory yields an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			names = append(names, e.Name())
		}
	}
	Sort(names)
	return names, nil
}

// Count returns the number of .mp4 files in dir.
func Count(dir string) (int, error) {
	names, err := List(dir)
	return len(names), err
}

// RemoveOrdinals deletes every "<n>.mp4" file in dir and returns how many
// were removed. Other files are left alone.
func RemoveOrdinals(dir string) (int, error) {
	names, err := List(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		if _, ok := Ordinal(name); !ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove stale chunk %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
