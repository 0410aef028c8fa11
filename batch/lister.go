package batch

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Lister enumerates regular files under root as slash-separated relative paths.
type Lister interface {
	List(root string, recursive bool) ([]string, error)
}

// DirLister lists files from the local filesystem.
type DirLister struct{}

// List returns files in root; subdirectories are walked only when recursive.
func (DirLister) List(root string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		return names, nil
	}

	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	return names, err
}
