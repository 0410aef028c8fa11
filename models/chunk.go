// Package models provides core data structures for the chunking system.
package models

import (
	"fmt"
	"strings"
)

// Chunk is one entry of a chunk plan: a contiguous run of frames from the source.
//
// StartTime and Duration are in seconds. For frame-exact plans they are
// measured on the source timeline; for stretched plans they are measured on
// the output timeline at the target frame rate.
type Chunk struct {
	Index      int     `json:"index"`
	StartFrame int     `json:"start_frame"`
	FrameCount int     `json:"frame_count"`
	StartTime  float64 `json:"start_time"`
	Duration   float64 `json:"duration"`
	SourcePath string  `json:"source_path"`
}

// NewChunk creates a new Chunk with validation.
//
// Example:
//
//	chunk, err := models.NewChunk(0, 0, 77, 0.0, 77.0/30.0, "/path/to/video.mp4")
func NewChunk(index, startFrame, frameCount int, startTime, duration float64, sourcePath string) (*Chunk, error) {
	c := &Chunk{
		Index:      index,
		StartFrame: startFrame,
		FrameCount: frameCount,
		StartTime:  startTime,
		Duration:   duration,
		SourcePath: sourcePath,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk: %w", err)
	}
	return c, nil
}

// EndFrame returns the exclusive end frame.
func (c *Chunk) EndFrame() int {
	return c.StartFrame + c.FrameCount
}

// EndTime returns StartTime + Duration.
func (c *Chunk) EndTime() float64 {
	return c.StartTime + c.Duration
}

// FileName returns the ordinal output file name ("0.mp4", "1.mp4", ...).
func (c *Chunk) FileName() string {
	return fmt.Sprintf("%d.mp4", c.Index)
}

// Validate checks if the Chunk has valid data.
//
// Returns an error if:
//   - SourcePath is empty or whitespace-only
//   - Index or StartFrame is negative
//   - FrameCount is not positive
//   - Duration is not positive or StartTime is negative
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.SourcePath) == "" {
		return fmt.Errorf("source_path cannot be empty")
	}

	if c.Index < 0 {
		return fmt.Errorf("index cannot be negative")
	}

	if c.StartFrame < 0 {
		return fmt.Errorf("start_frame cannot be negative")
	}

	if c.FrameCount <= 0 {
		return fmt.Errorf("frame_count must be greater than 0")
	}

	if c.StartTime < 0 {
		return fmt.Errorf("start_time cannot be negative")
	}

	if c.Duration <= 0 {
		return fmt.Errorf("duration must be greater than 0")
	}

	return nil
}
