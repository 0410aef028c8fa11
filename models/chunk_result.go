package models

import (
	"fmt"
	"strings"
)

// ChunkResult represents the outcome of writing a single chunk file.
//
// Successful results must have an output path and no error; failed results
// must have an error and no output path.
type ChunkResult struct {
	Index      int    `json:"index"`
	OutputPath string `json:"output_path"`
	Frames     int    `json:"frames"`
	Success    bool   `json:"success"`
	Error      error  `json:"-"`
}

// NewChunkResultSuccess creates a successful ChunkResult with validation.
func NewChunkResultSuccess(index int, outputPath string, frames int) (*ChunkResult, error) {
	r := &ChunkResult{
		Index:      index,
		OutputPath: outputPath,
		Frames:     frames,
		Success:    true,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunk result: %w", err)
	}
	return r, nil
}

// NewChunkResultFailure creates a failed ChunkResult. chunkErr must not be nil.
func NewChunkResultFailure(index int, chunkErr error) (*ChunkResult, error) {
	if chunkErr == nil {
		return nil, fmt.Errorf("invalid chunk result: error cannot be nil for failed result")
	}
	return &ChunkResult{
		Index:   index,
		Success: false,
		Error:   chunkErr,
	}, nil
}

// Validate checks if the ChunkResult has consistent state.
func (r *ChunkResult) Validate() error {
	if r.Success && r.Error != nil {
		return fmt.Errorf("inconsistent state: Success is true but Error is not nil")
	}

	if !r.Success && r.Error == nil {
		return fmt.Errorf("failed result must have an error")
	}

	if r.Success && strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful result")
	}

	if !r.Success && strings.TrimSpace(r.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}

	return nil
}
