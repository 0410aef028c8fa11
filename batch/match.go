package batch

import (
	"path"
	"slices"
	"strings"
)

// VideoExtensions are the container extensions the video loader accepts.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".webm", ".flv", ".wmv", ".m4v", ".mpg", ".mpeg"}

// ImageExtensions are the file extensions the image loader accepts.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp", ".tiff", ".tif"}

// Match filters names (slash-separated paths relative to the listed root)
// by pattern and by case-insensitive extension, and returns them sorted
// lexicographically.
//
// Patterns use path.Match syntax per segment; a "**" segment matches zero or
// more directories.
func Match(names []string, pattern string, exts []string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	// Surface malformed patterns even when names is empty
	if _, err := path.Match(strings.ReplaceAll(pattern, "**", "*"), ""); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if !hasExtension(name, exts) {
			continue
		}
		ok, err := MatchPattern(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// MatchPattern reports whether the slash-separated name matches pattern.
func MatchPattern(pattern, name string) (bool, error) {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, name []string) (bool, error) {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				ok, err := matchSegments(rest, name[i:])
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		}
		if len(name) == 0 {
			return false, nil
		}
		ok, err := path.Match(pattern[0], name[0])
		if err != nil || !ok {
			return false, err
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0, nil
}

// Recursive reports whether pattern can match below the top-level directory.
func Recursive(pattern string) bool {
	return strings.Contains(pattern, "/")
}

func hasExtension(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	return slices.Contains(exts, ext)
}
