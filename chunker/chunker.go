// Package chunker computes chunk boundaries from frame counts and frame rates.
//
// Planning is pure arithmetic; running ffmpeg for each planned chunk is the
// job of the command builders and the pipeline package.
package chunker

import (
	"fmt"
	"vidchunk/models"
)

const (
	// DefaultFramesPerChunk is the default chunk size in frames
	DefaultFramesPerChunk = 77

	// MinFramesPerChunk is the smallest accepted chunk size
	MinFramesPerChunk = 1

	// MaxFramesPerChunk is the largest accepted chunk size
	MaxFramesPerChunk = 10000

	// DefaultTargetFPS is the output frame rate of the stretching chunker
	DefaultTargetFPS = 16.0
)

// Mode selects how chunks relate to the source timeline.
type Mode string

const (
	// ModeFrameExact keeps the source frame rate and cuts exact frame counts.
	ModeFrameExact Mode = "frame_exact"

	// ModeStretch retimes every frame onto a fixed target frame rate, then cuts.
	ModeStretch Mode = "stretch"
)

// Plan is the complete chunk layout for one source video.
type Plan struct {
	Mode           Mode            `json:"mode"`
	SourcePath     string          `json:"source_path"`
	TotalFrames    int             `json:"total_frames"`
	SourceFPS      float64         `json:"source_fps"`
	OutputFPS      float64         `json:"output_fps"`
	FramesPerChunk int             `json:"frames_per_chunk"`
	Chunks         []*models.Chunk `json:"chunks"`
}

// StretchFactor is the presentation-timestamp multiplier (source_fps / output_fps).
// It is 1 for frame-exact plans.
func (p *Plan) StretchFactor() float64 {
	if p.OutputFPS <= 0 {
		return 1
	}
	return p.SourceFPS / p.OutputFPS
}

// SplitFrames returns the frame numbers at which a new chunk starts, excluding 0.
func (p *Plan) SplitFrames() []int {
	if len(p.Chunks) <= 1 {
		return nil
	}
	splits := make([]int, 0, len(p.Chunks)-1)
	for _, c := range p.Chunks[1:] {
		splits = append(splits, c.StartFrame)
	}
	return splits
}

// FrameCounts returns the per-chunk frame counts in order.
func (p *Plan) FrameCounts() []int {
	counts := make([]int, len(p.Chunks))
	for i, c := range p.Chunks {
		counts[i] = c.FrameCount
	}
	return counts
}

// Chunker builds chunk plans for a source file.
type Chunker struct {
	sourcePath     string
	framesPerChunk int
	targetFPS      float64
	mode           Mode
}

// NewChunker creates a new Chunker with default settings (frame-exact, 77 frames)
func NewChunker(sourcePath string) *Chunker {
	return &Chunker{
		sourcePath:     sourcePath,
		framesPerChunk: DefaultFramesPerChunk,
		targetFPS:      DefaultTargetFPS,
		mode:           ModeFrameExact,
	}
}

// SetFramesPerChunk sets the chunk size in frames
func (c *Chunker) SetFramesPerChunk(frames int) *Chunker {
	c.framesPerChunk = frames
	return c
}

// SetTargetFPS sets the output frame rate used in stretch mode
func (c *Chunker) SetTargetFPS(fps float64) *Chunker {
	c.targetFPS = fps
	return c
}

// SetMode selects frame-exact or stretch planning
func (c *Chunker) SetMode(mode Mode) *Chunker {
	c.mode = mode
	return c
}

// CreatePlan computes the chunk plan from probed media info.
//
// Example:
//
//	probeResult, _ := prober.Probe(ctx, "/path/to/video.mp4")
//	plan, err := chunker.NewChunker("/path/to/video.mp4").
//		SetFramesPerChunk(77).
//		CreatePlan(probeResult)
func (c *Chunker) CreatePlan(mediaInfo MediaInfo) (*Plan, error) {
	if mediaInfo == nil {
		return nil, fmt.Errorf("media info cannot be nil")
	}

	fps, err := mediaInfo.GetFPS()
	if err != nil {
		return nil, fmt.Errorf("failed to get frame rate: %w", err)
	}

	frames, err := mediaInfo.GetFrameCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get frame count: %w", err)
	}

	switch c.mode {
	case ModeFrameExact:
		return PlanFrameExact(c.sourcePath, frames, fps, c.framesPerChunk)
	case ModeStretch:
		return PlanStretched(c.sourcePath, frames, fps, c.targetFPS, c.framesPerChunk)
	default:
		return nil, fmt.Errorf("unknown chunking mode %q", c.mode)
	}
}

// ChunkCount returns ceil(totalFrames / framesPerChunk).
func ChunkCount(totalFrames, framesPerChunk int) int {
	if totalFrames <= 0 || framesPerChunk <= 0 {
		return 0
	}
	return (totalFrames + framesPerChunk - 1) / framesPerChunk
}

// PlanFrameExact splits totalFrames into chunks of framesPerChunk frames at
// the source frame rate. Only the last chunk may be shorter.
//
// Example: 524 frames, 77 per chunk -> 7 chunks [77 77 77 77 77 77 62].
func PlanFrameExact(sourcePath string, totalFrames int, fps float64, framesPerChunk int) (*Plan, error) {
	if err := validateInputs(sourcePath, totalFrames, fps, framesPerChunk); err != nil {
		return nil, err
	}

	plan := &Plan{
		Mode:           ModeFrameExact,
		SourcePath:     sourcePath,
		TotalFrames:    totalFrames,
		SourceFPS:      fps,
		OutputFPS:      fps,
		FramesPerChunk: framesPerChunk,
	}
	if err := plan.fill(fps); err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanStretched lays out chunks on the retimed output timeline, where every
// source frame is shown for 1/targetFPS seconds. Frame counts are identical
// to the frame-exact plan; only times change.
//
// Example: 231 frames @ 30fps, target 16fps, 77 per chunk -> 3 chunks of
// 77 frames, each 77/16 = 4.8125s long.
func PlanStretched(sourcePath string, totalFrames int, sourceFPS, targetFPS float64, framesPerChunk int) (*Plan, error) {
	if err := validateInputs(sourcePath, totalFrames, sourceFPS, framesPerChunk); err != nil {
		return nil, err
	}
	if targetFPS <= 0 {
		return nil, fmt.Errorf("target fps must be positive, got %.3f", targetFPS)
	}

	plan := &Plan{
		Mode:           ModeStretch,
		SourcePath:     sourcePath,
		TotalFrames:    totalFrames,
		SourceFPS:      sourceFPS,
		OutputFPS:      targetFPS,
		FramesPerChunk: framesPerChunk,
	}
	if err := plan.fill(targetFPS); err != nil {
		return nil, err
	}
	return plan, nil
}

// fill creates the chunk entries, timing them at rate frames per second.
func (p *Plan) fill(rate float64) error {
	count := ChunkCount(p.TotalFrames, p.FramesPerChunk)
	p.Chunks = make([]*models.Chunk, 0, count)

	for i := 0; i < count; i++ {
		start := i * p.FramesPerChunk
		n := min(p.FramesPerChunk, p.TotalFrames-start)

		chunk, err := models.NewChunk(i, start, n, float64(start)/rate, float64(n)/rate, p.SourcePath)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		p.Chunks = append(p.Chunks, chunk)
	}
	return nil
}

func validateInputs(sourcePath string, totalFrames int, fps float64, framesPerChunk int) error {
	if sourcePath == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if framesPerChunk < MinFramesPerChunk {
		return fmt.Errorf("frames per chunk must be at least %d", MinFramesPerChunk)
	}
	if framesPerChunk > MaxFramesPerChunk {
		return fmt.Errorf("frames per chunk cannot exceed %d", MaxFramesPerChunk)
	}
	if totalFrames <= 0 {
		return fmt.Errorf("video has no frames")
	}
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate: %.3f", fps)
	}
	return nil
}

// ValidatePlan checks a plan for completeness and correctness.
func ValidatePlan(p *Plan) error {
	if p == nil || len(p.Chunks) == 0 {
		return fmt.Errorf("chunk list is empty")
	}

	sum := 0
	for i, chunk := range p.Chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("chunk %d is invalid: %w", i, err)
		}

		if chunk.SourcePath != p.SourcePath {
			return fmt.Errorf("chunk %d has different source path: expected %s, got %s",
				i, p.SourcePath, chunk.SourcePath)
		}

		if chunk.Index != i {
			return fmt.Errorf("chunk %d has incorrect index %d", i, chunk.Index)
		}

		// Frames must be contiguous: no gaps and no overlaps
		if chunk.StartFrame != sum {
			return fmt.Errorf("chunk %d starts at frame %d, expected %d", i, chunk.StartFrame, sum)
		}

		last := i == len(p.Chunks)-1
		if !last && chunk.FrameCount != p.FramesPerChunk {
			return fmt.Errorf("chunk %d has %d frames, expected %d", i, chunk.FrameCount, p.FramesPerChunk)
		}
		if last && chunk.FrameCount > p.FramesPerChunk {
			return fmt.Errorf("last chunk has %d frames, more than %d", chunk.FrameCount, p.FramesPerChunk)
		}

		sum += chunk.FrameCount
	}

	if sum != p.TotalFrames {
		return fmt.Errorf("chunks cover %d frames, source has %d", sum, p.TotalFrames)
	}

	return nil
}
