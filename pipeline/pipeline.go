// Package pipeline turns a source video into a directory of numbered chunks.
//
// Both chunkers follow the same steps: fingerprint the bytes, derive the
// output directory, consult the registry, probe, plan, run ffmpeg, verify
// the result on disk, and record it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vidchunk/chunkdir"
	"vidchunk/chunker"
	"vidchunk/command"
	"vidchunk/command/extract"
	"vidchunk/command/stretch"
	"vidchunk/ffmpeg"
	"vidchunk/ffprobe"
	"vidchunk/hasher"
	"vidchunk/orchestrator"
	"vidchunk/registry"
)

// Settings controls one chunking run.
type Settings struct {
	OutputRoot     string
	OutputDirName  string
	FramesPerChunk int
	TargetFPS      float64 // stretch mode only
	Workers        int     // frame-exact mode only
	Encode         command.EncodeSettings
	DryRun         bool
}

// Validate checks settings for mode.
func (s Settings) Validate(mode chunker.Mode) error {
	var problems []string
	if s.OutputDirName == "" {
		problems = append(problems, "output directory name cannot be empty")
	}
	if s.FramesPerChunk < chunker.MinFramesPerChunk || s.FramesPerChunk > chunker.MaxFramesPerChunk {
		problems = append(problems, fmt.Sprintf("frames per chunk must be between %d and %d, got %d",
			chunker.MinFramesPerChunk, chunker.MaxFramesPerChunk, s.FramesPerChunk))
	}
	if mode == chunker.ModeStretch && s.TargetFPS <= 0 {
		problems = append(problems, fmt.Sprintf("target fps must be positive, got %.3f", s.TargetFPS))
	}
	if err := s.Encode.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid chunk settings: %v", problems)
	}
	return nil
}

// Output describes a finished (or reused, or previewed) chunk directory.
type Output struct {
	Hash        string
	ChunkDir    string
	TotalChunks int
	Reused      bool
	Plan        *chunker.Plan // nil when reused
	Commands    []string      // command lines, filled for dry runs
}

// Pipeline runs chunking jobs.
type Pipeline struct {
	bins     ffmpeg.Binaries
	runner   ffmpeg.Runner
	prober   *ffprobe.Prober
	registry *registry.Registry
	stats    *ffmpeg.StatsParser
	logger   *slog.Logger

	onProgress func(done, total int)
}

// New creates a pipeline. reg may be nil to disable reuse.
func New(bins ffmpeg.Binaries, runner ffmpeg.Runner, reg *registry.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		bins:     bins,
		runner:   runner,
		prober:   ffprobe.NewProber(bins.FFprobe, runner),
		registry: reg,
		stats:    ffmpeg.NewStatsParser(),
		logger:   logger,
	}
}

// SetProgressCallback receives (finished chunks or passes, total) updates.
func (p *Pipeline) SetProgressCallback(fn func(done, total int)) {
	p.onProgress = fn
}

// FrameExact splits videoPath into chunks of exactly s.FramesPerChunk frames
// at the source frame rate, one ffmpeg invocation per chunk.
func (p *Pipeline) FrameExact(ctx context.Context, videoPath string, s Settings) (*Output, error) {
	return p.run(ctx, videoPath, chunker.ModeFrameExact, s)
}

// Stretch retimes videoPath to s.TargetFPS without dropping frames and
// splits the result every s.FramesPerChunk frames in a single ffmpeg pass.
func (p *Pipeline) Stretch(ctx context.Context, videoPath string, s Settings) (*Output, error) {
	return p.run(ctx, videoPath, chunker.ModeStretch, s)
}

// Probe returns the stream summary of videoPath.
func (p *Pipeline) Probe(ctx context.Context, videoPath string) (ffprobe.VideoInfo, error) {
	res, err := p.prober.Probe(ctx, videoPath)
	if err != nil {
		return ffprobe.VideoInfo{}, err
	}
	return res.Info()
}

// Check reports the live chunk directory recorded for videoPath's content.
func (p *Pipeline) Check(ctx context.Context, videoPath string) (string, bool, error) {
	if p.registry == nil {
		return "", false, nil
	}
	hash, err := hasher.Fingerprint(videoPath)
	if err != nil {
		return "", false, err
	}
	rec, ok, err := p.registry.Find(ctx, hash)
	if err != nil || !ok {
		return "", false, err
	}
	p.logger.Info("video already processed", "hash", hash, "dir", rec.ChunkDir, "chunks", rec.ChunkCount)
	return rec.ChunkDir, true, nil
}

func (p *Pipeline) run(ctx context.Context, videoPath string, mode chunker.Mode, s Settings) (*Output, error) {
	if err := s.Validate(mode); err != nil {
		return nil, err
	}

	hash, err := hasher.Fingerprint(videoPath)
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(filepath.Join(s.OutputRoot, s.OutputDirName, hash))
	if err != nil {
		return nil, err
	}
	logger := p.logger.With("mode", mode, "hash", hash)

	if p.registry != nil && !s.DryRun {
		rec, ok, err := p.registry.Reusable(ctx, hash, dir, mode, s.FramesPerChunk, s.TargetFPS)
		if err != nil {
			return nil, err
		}
		if ok {
			logger.Info("reusing existing chunks", "dir", dir, "chunks", rec.ChunkCount)
			return &Output{Hash: hash, ChunkDir: dir, TotalChunks: rec.ChunkCount, Reused: true}, nil
		}
	}

	probe, err := p.prober.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	plan, err := chunker.NewChunker(videoPath).
		SetMode(mode).
		SetFramesPerChunk(s.FramesPerChunk).
		SetTargetFPS(s.TargetFPS).
		CreatePlan(probe)
	if err != nil {
		return nil, fmt.Errorf("plan chunks for %s: %w", videoPath, err)
	}
	if err := chunker.ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("plan chunks for %s: %w", videoPath, err)
	}

	logger.Info("chunk plan ready", "frames", plan.TotalFrames, "source_fps", plan.SourceFPS,
		"output_fps", plan.OutputFPS, "chunks", len(plan.Chunks))

	out := &Output{Hash: hash, ChunkDir: dir, TotalChunks: len(plan.Chunks), Plan: plan}

	if s.DryRun {
		cmds, err := p.commands(plan, dir, s)
		if err != nil {
			return nil, err
		}
		for _, c := range cmds {
			line, err := c.DryRun()
			if err != nil {
				return nil, err
			}
			out.Commands = append(out.Commands, line)
		}
		return out, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	// The directory is about to be rewritten; its record must not outlive
	// the old chunks even if this run fails.
	if p.registry != nil {
		if err := p.registry.Forget(ctx, dir); err != nil {
			return nil, err
		}
	}
	if removed, err := chunkdir.RemoveOrdinals(dir); err != nil {
		return nil, err
	} else if removed > 0 {
		logger.Info("removed stale chunks", "dir", dir, "count", removed)
	}

	switch mode {
	case chunker.ModeStretch:
		err = p.executeStretch(ctx, plan, dir, s, logger)
	default:
		err = p.executeFrameExact(ctx, plan, dir, s, logger)
	}
	if err != nil {
		return nil, err
	}

	if err := verify(dir, len(plan.Chunks)); err != nil {
		return nil, err
	}

	if p.registry != nil {
		rec := registry.Record{
			Hash:           hash,
			ChunkDir:       dir,
			Mode:           mode,
			FramesPerChunk: s.FramesPerChunk,
			ChunkCount:     len(plan.Chunks),
			TotalFrames:    plan.TotalFrames,
		}
		if mode == chunker.ModeStretch {
			rec.TargetFPS = s.TargetFPS
		}
		if err := p.registry.Register(ctx, rec); err != nil {
			return nil, err
		}
	}

	logger.Info("chunking complete", "dir", dir, "chunks", len(plan.Chunks))
	return out, nil
}

// commands builds the ffmpeg commands for plan without running them.
func (p *Pipeline) commands(plan *chunker.Plan, dir string, s Settings) ([]command.Command, error) {
	if plan.Mode == chunker.ModeStretch {
		b := stretch.NewStretchBuilder(plan, dir).SetBinary(p.bins.FFmpeg).SetEncodeSettings(s.Encode)
		return []command.Command{b}, nil
	}

	cmds := make([]command.Command, 0, len(plan.Chunks))
	for _, chunk := range plan.Chunks {
		b := extract.NewExtractBuilder(chunk, filepath.Join(dir, chunk.FileName()), plan.SourceFPS).
			SetBinary(p.bins.FFmpeg).
			SetEncodeSettings(s.Encode)
		cmds = append(cmds, b)
	}
	return cmds, nil
}

func (p *Pipeline) executeFrameExact(ctx context.Context, plan *chunker.Plan, dir string, s Settings, logger *slog.Logger) error {
	cmds, err := p.commands(plan, dir, s)
	if err != nil {
		return err
	}

	orch := orchestrator.New(p.runner, s.Workers, logger)
	for i, c := range cmds {
		task := &orchestrator.Task{
			ID:      fmt.Sprintf("chunk-%d", i),
			Index:   i,
			Frames:  plan.Chunks[i].FrameCount,
			Command: c,
		}
		if err := orch.AddTask(task); err != nil {
			return err
		}
	}

	orch.SetProgressCallback(func(completed, total int, task *orchestrator.Task) {
		if task.Output != nil {
			p.checkFrames(logger, task.ID, task.Output.Stderr, task.Frames)
		}
		if p.onProgress != nil {
			p.onProgress(completed, total)
		}
	})

	if _, err := orch.Execute(ctx); err != nil {
		return fmt.Errorf("frame-exact chunking of %s: %w", plan.SourcePath, err)
	}
	return nil
}

func (p *Pipeline) executeStretch(ctx context.Context, plan *chunker.Plan, dir string, s Settings, logger *slog.Logger) error {
	cmds, err := p.commands(plan, dir, s)
	if err != nil {
		return err
	}

	logger.Info("stretching video", "factor", plan.StretchFactor(), "target_fps", plan.OutputFPS)
	res, err := cmds[0].Run(ctx, p.runner)
	if err != nil {
		return fmt.Errorf("stretch chunking of %s: %w", plan.SourcePath, err)
	}
	if res != nil {
		p.checkFrames(logger, "stretch", res.Stderr, plan.TotalFrames)
	}
	if p.onProgress != nil {
		p.onProgress(1, 1)
	}
	return nil
}

// checkFrames compares the frame count ffmpeg reported with the expected one.
func (p *Pipeline) checkFrames(logger *slog.Logger, task string, stderr []byte, want int) {
	stats, ok := p.stats.Final(stderr)
	if !ok {
		return
	}
	if int(stats.Frame) != want {
		logger.Warn("frame count differs from plan", "task", task, "expected", want, "encoded", stats.Frame)
	}
}

// verify checks that dir holds exactly want chunk files.
func verify(dir string, want int) error {
	names, err := chunkdir.List(dir)
	if err != nil {
		return err
	}
	got := 0
	for _, n := range names {
		if _, ok := chunkdir.Ordinal(n); ok {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("expected %d chunks in %s, found %d", want, dir, got)
	}
	return nil
}
