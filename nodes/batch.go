package nodes

import (
	"context"
	"encoding/json"
	"fmt"
)

type batchKind int

const (
	videoBatch batchKind = iota
	imageBatch
)

// BatchOutput is returned by LoadVideoBatch.
type BatchOutput struct {
	Video        string `json:"video"`
	Filename     string `json:"filename"`
	CurrentIndex int    `json:"current_index"`
	TotalVideos  int    `json:"total_videos"`
}

// ImageBatchOutput is returned by LoadImageBatch.
type ImageBatchOutput struct {
	Image        string `json:"image"`
	Filename     string `json:"filename"`
	CurrentIndex int    `json:"current_index"`
	TotalImages  int    `json:"total_images"`
}

type batchLoader struct {
	env  *Env
	kind batchKind
}

func (n *batchLoader) Schema() Schema {
	s := Schema{
		ID:          "LoadVideoBatch",
		DisplayName: "Load Video Batch",
		Category:    categoryVideo,
		Description: "Load videos incrementally from a directory, tracking progress",
		Inputs: []Input{
			stringInput("path", "", "Directory path containing videos"),
			stringInput("pattern", "*", "Glob pattern to filter videos (e.g., *.mp4)"),
			stringInput("label", "Batch 001", "Unique label to track this batch's progress"),
			intInput("index", 0, 0, 150000, "Manual index override (only used in manual mode)"),
		},
		Outputs: []Output{
			{Name: "video", Type: TypeVideo},
			{Name: "filename", Type: TypeString},
			{Name: "current_index", Type: TypeInt},
			{Name: "total_videos", Type: TypeInt},
		},
	}
	if n.kind == imageBatch {
		s.ID = "LoadImageBatch"
		s.DisplayName = "Load Image Batch"
		s.Category = "image/processing"
		s.Description = "Load images incrementally from a directory, tracking progress"
		s.Inputs[0].Tooltip = "Directory path containing images"
		s.Inputs[1].Tooltip = "Glob pattern to filter images (e.g., *.png)"
		s.Outputs[0] = Output{Name: "image", Type: TypeImage}
		s.Outputs[3].Name = "total_images"
	}
	return s
}

func (n *batchLoader) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in struct {
		Path    string `json:"path"`
		Pattern string `json:"pattern"`
		Label   string `json:"label"`
		Index   int    `json:"index"`
	}
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	loader := n.env.VideoBatch
	if n.kind == imageBatch {
		loader = n.env.ImageBatch
	}
	if loader == nil {
		return nil, fmt.Errorf("%s: batch state is not configured", n.Schema().ID)
	}

	// Incremental mode only; the index input is accepted for compatibility.
	if in.Index != 0 {
		n.env.Logger.Debug("index input ignored in incremental mode", "label", in.Label, "index", in.Index)
	}

	sel, err := loader.Next(ctx, in.Path, in.Pattern, in.Label)
	if err != nil {
		return nil, err
	}

	if n.kind == imageBatch {
		return &ImageBatchOutput{Image: sel.Path, Filename: sel.Filename, CurrentIndex: sel.Index, TotalImages: sel.Total}, nil
	}
	return &BatchOutput{Video: sel.Path, Filename: sel.Filename, CurrentIndex: sel.Index, TotalVideos: sel.Total}, nil
}
