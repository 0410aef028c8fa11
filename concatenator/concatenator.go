// Package concatenator joins video files with ffmpeg's concat demuxer.
package concatenator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"vidchunk/batch"
	"vidchunk/chunkdir"
	"vidchunk/command"
	"vidchunk/ffmpeg"
	"vidchunk/models"
)

// Concatenator merges chunk files into a single output file
type Concatenator struct {
	runner     ffmpeg.Runner
	bin        string
	strictMode bool // If true, fail if any chunks are missing. If false, skip missing chunks.
	logger     *slog.Logger
}

// NewConcatenator creates a new concatenator running bin through runner
func NewConcatenator(runner ffmpeg.Runner, bin string, strictMode bool, logger *slog.Logger) *Concatenator {
	if bin == "" {
		bin = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Concatenator{
		runner:     runner,
		bin:        bin,
		strictMode: strictMode,
		logger:     logger,
	}
}

// Concatenate merges chunk results into finalOutputPath using ffmpeg's concat demuxer
func (c *Concatenator) Concatenate(ctx context.Context, results []*models.ChunkResult, finalOutputPath string) error {
	successful, failed, err := c.validateResults(results)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if len(failed) > 0 {
		if c.strictMode {
			return fmt.Errorf("strict mode: %d chunks failed", len(failed))
		}
		c.logger.Warn("skipping failed chunks", "failed", len(failed), "successful", len(successful))
	}

	if len(successful) == 0 {
		return fmt.Errorf("no successful chunks to concatenate")
	}

	if err := c.checkForGaps(successful); err != nil {
		if c.strictMode {
			return fmt.Errorf("strict mode: %w", err)
		}
		c.logger.Warn("chunk sequence has gaps", "err", err)
	}

	paths := make([]string, len(successful))
	for i, r := range successful {
		paths[i] = r.OutputPath
	}

	concatFilePath, err := createConcatFile(paths)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFilePath)

	cmd := &concatCommand{bin: c.bin, listPath: concatFilePath, outputPath: finalOutputPath}
	c.logger.Debug("running concat", "cmd", cmd.String())
	if _, err := cmd.Run(ctx, c.runner); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	c.logger.Info("concatenated videos", "inputs", len(paths), "output", finalOutputPath)
	return nil
}

// ConcatenateFiles joins paths in the given order.
func (c *Concatenator) ConcatenateFiles(ctx context.Context, paths []string, outputPath string) error {
	results := make([]*models.ChunkResult, 0, len(paths))
	for i, p := range paths {
		r, err := models.NewChunkResultSuccess(i, p, 0)
		if err != nil {
			return err
		}
		results = append(results, r)
	}
	return c.Concatenate(ctx, results, outputPath)
}

// ConcatenateDirectory joins every file in dir matching pattern into
// {outputRoot}/{prefix dir}/{prefix name}_{NNNN}.mp4 and returns that path.
// Numbered chunk files are ordered numerically, everything else by name.
func (c *Concatenator) ConcatenateDirectory(ctx context.Context, dir, pattern, outputRoot, prefix string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", dir)
	}

	names, err := batch.DirLister{}.List(dir, batch.Recursive(pattern))
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}
	matches, err := batch.Match(names, pattern, nil)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %q in %s", batch.ErrNoMatches, pattern, dir)
	}
	chunkdir.Sort(matches)

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, filepath.FromSlash(m))
		c.logger.Debug("concat input", "position", i, "file", m)
	}

	outputPath, err := NextOutputPath(outputRoot, prefix)
	if err != nil {
		return "", err
	}

	if err := c.ConcatenateFiles(ctx, paths, outputPath); err != nil {
		return "", err
	}
	return filepath.Abs(outputPath)
}

// NextOutputPath resolves prefix (which may contain subdirectories) under
// outputRoot, creates the directory and returns the first free numbered name.
func NextOutputPath(outputRoot, prefix string) (string, error) {
	if prefix == "" {
		prefix = "concatenated"
	}
	subdir, name := filepath.Split(filepath.FromSlash(prefix))
	if name == "" {
		return "", fmt.Errorf("output prefix %q has no file name", prefix)
	}

	outDir := filepath.Join(outputRoot, subdir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	counter, err := nextCounter(outDir, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(outDir, fmt.Sprintf("%s_%04d.mp4", name, counter)), nil
}

// nextCounter returns one past the largest existing {name}_{n}.mp4 counter, starting at 1.
func nextCounter(dir, name string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read output directory: %w", err)
	}

	highest := 0
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), name+"_")
		if !ok {
			continue
		}
		digits, ok := strings.CutSuffix(rest, ".mp4")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest + 1, nil
}

// validateResults separates successful and failed results
func (c *Concatenator) validateResults(results []*models.ChunkResult) (successful, failed []*models.ChunkResult, err error) {
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("no results provided")
	}

	for _, result := range results {
		if result.Success && result.OutputPath != "" {
			// Verify file exists
			if _, err := os.Stat(result.OutputPath); err != nil {
				failed = append(failed, result)
			} else {
				successful = append(successful, result)
			}
		} else {
			failed = append(failed, result)
		}
	}

	// Sort successful results by Index to ensure temporal order
	sort.Slice(successful, func(i, j int) bool {
		return successful[i].Index < successful[j].Index
	})

	return successful, failed, nil
}

// checkForGaps detects missing chunks in the sequence
func (c *Concatenator) checkForGaps(successful []*models.ChunkResult) error {
	gaps := []int{}
	for i := 0; i < len(successful)-1; i++ {
		currentID := successful[i].Index
		nextID := successful[i+1].Index

		for id := currentID + 1; id < nextID; id++ {
			gaps = append(gaps, id)
		}
	}

	if len(gaps) > 0 {
		return fmt.Errorf("missing chunks: %v", gaps)
	}
	return nil
}

// createConcatFile creates a text file listing all paths for ffmpeg concat demuxer
// Format: file '/path/to/0.mp4'
//
//	file '/path/to/1.mp4'
func createConcatFile(paths []string) (string, error) {
	tmpFile, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}

		// Escape single quotes in path (replace ' with '\'')
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")

		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("failed to write to concat file: %w", err)
		}
	}

	return tmpFile.Name(), nil
}

// concatCommand is the concat-demuxer invocation
type concatCommand struct {
	bin        string
	listPath   string
	outputPath string
	priority   int
}

func (c *concatCommand) BuildArgs() []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-f", "concat",
		"-safe", "0",
		"-i", c.listPath,
		"-c", "copy", // Copy without re-encoding
		"-y",
		c.outputPath,
	}
}

func (c *concatCommand) Run(ctx context.Context, runner ffmpeg.Runner) (*ffmpeg.Result, error) {
	return command.Execute(ctx, runner, c.bin, c)
}

func (c *concatCommand) DryRun() (string, error) {
	return c.String(), nil
}

func (c *concatCommand) String() string {
	return ffmpeg.CommandLine(c.binary(), c.BuildArgs())
}

func (c *concatCommand) binary() string {
	if c.bin == "" {
		return "ffmpeg"
	}
	return c.bin
}

func (c *concatCommand) GetPriority() int { return c.priority }

func (c *concatCommand) SetPriority(priority int) command.Command {
	c.priority = priority
	return c
}

func (c *concatCommand) GetTaskType() command.TaskType { return command.TaskTypeConcat }
func (c *concatCommand) GetInputPath() string          { return c.listPath }
func (c *concatCommand) GetOutputPath() string         { return c.outputPath }
