// Package ffmpeg locates the ffmpeg/ffprobe binaries and runs them as subprocesses.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// BundledEnv names the environment variable a bundled ffmpeg distribution
// (imageio-ffmpeg and friends) uses to publish its executable path.
const BundledEnv = "IMAGEIO_FFMPEG_EXE"

// ErrNotFound is returned when no usable ffmpeg or ffprobe executable exists.
var ErrNotFound = errors.New("ffmpeg not found: install ffmpeg or set " + BundledEnv)

// swapped in tests
var lookPath = exec.LookPath

// Binaries holds resolved executable paths.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// Locate resolves the ffmpeg and ffprobe executables.
//
// Resolution order for ffmpeg: explicit path, system PATH, the bundled
// executable advertised through BundledEnv. ffprobe is resolved from an
// explicit path, then PATH, then as a sibling of the resolved ffmpeg
// (replacing "ffmpeg" with "ffprobe" in the file name).
//
// Locate fails with ErrNotFound before any processing is attempted.
func Locate(ffmpegPath, ffprobePath string) (Binaries, error) {
	var bins Binaries

	ff, err := resolveFFmpeg(ffmpegPath)
	if err != nil {
		return bins, err
	}
	bins.FFmpeg = ff

	probe, err := resolveFFprobe(ffprobePath, ff)
	if err != nil {
		return bins, err
	}
	bins.FFprobe = probe

	return bins, nil
}

func resolveFFmpeg(explicit string) (string, error) {
	if explicit != "" {
		p, err := lookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: configured ffmpeg %q is not executable: %v", ErrNotFound, explicit, err)
		}
		return p, nil
	}

	if p, err := lookPath("ffmpeg"); err == nil {
		return p, nil
	}

	if bundled := strings.TrimSpace(os.Getenv(BundledEnv)); bundled != "" {
		if p, err := lookPath(bundled); err == nil {
			return p, nil
		}
	}

	return "", ErrNotFound
}

func resolveFFprobe(explicit, ffmpegPath string) (string, error) {
	if explicit != "" {
		p, err := lookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: configured ffprobe %q is not executable: %v", ErrNotFound, explicit, err)
		}
		return p, nil
	}

	if p, err := lookPath("ffprobe"); err == nil {
		return p, nil
	}

	dir, base := filepath.Split(ffmpegPath)
	if strings.Contains(base, "ffmpeg") {
		sibling := filepath.Join(dir, strings.Replace(base, "ffmpeg", "ffprobe", 1))
		if p, err := lookPath(sibling); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w: no ffprobe next to %s", ErrNotFound, ffmpegPath)
}
