package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"vidchunk/chunker"
	"vidchunk/pipeline"
)

const (
	categoryVideo = "video/processing"

	defaultOutputDir        = "video_chunks"
	defaultStretchOutputDir = "video_chunks_16fps"
)

// ChunkerOutput is returned by both chunker nodes. Commands is only set
// for dry runs.
type ChunkerOutput struct {
	ChunkDirPath string   `json:"chunk_dir_path"`
	TotalChunks  int      `json:"total_chunks"`
	Commands     []string `json:"commands,omitempty"`
}

type chunkerInputs struct {
	Video          string  `json:"video"`
	OutputDir      string  `json:"output_dir"`
	FramesPerChunk int     `json:"frames_per_chunk"`
	TargetFPS      float64 `json:"target_fps"`
}

func videoInput(tooltip string) Input {
	return Input{Name: "video", Type: TypeVideo, Tooltip: tooltip}
}

// outputDir is the output_dir default for mode.
func (e *Env) outputDir(mode chunker.Mode) string {
	if mode == chunker.ModeStretch {
		if e.StretchOutputDir != "" {
			return e.StretchOutputDir
		}
		return defaultStretchOutputDir
	}
	if e.Defaults.OutputDirName != "" {
		return e.Defaults.OutputDirName
	}
	return defaultOutputDir
}

func (e *Env) framesPerChunk() int {
	if e.Defaults.FramesPerChunk > 0 {
		return e.Defaults.FramesPerChunk
	}
	return chunker.DefaultFramesPerChunk
}

func (e *Env) targetFPS() float64 {
	if e.Defaults.TargetFPS > 0 {
		return e.Defaults.TargetFPS
	}
	return chunker.DefaultTargetFPS
}

func (e *Env) framesPerChunkInput() Input {
	return intInput("frames_per_chunk", e.framesPerChunk(), chunker.MinFramesPerChunk, chunker.MaxFramesPerChunk, "Number of frames per chunk")
}

func chunkerOutputs() []Output {
	return []Output{{Name: "chunk_dir_path", Type: TypeString}, {Name: "total_chunks", Type: TypeInt}}
}

// frameExactChunker keeps the source frame rate.
type frameExactChunker struct{ env *Env }

func (n *frameExactChunker) Schema() Schema {
	return Schema{
		ID:          "VideoChunker",
		DisplayName: "Video Chunker",
		Category:    categoryVideo,
		Description: "Split video into frame chunks (preserves original FPS)",
		Inputs: []Input{
			videoInput("The video to process"),
			stringInput("output_dir", n.env.outputDir(chunker.ModeFrameExact), "Base output directory name"),
			n.env.framesPerChunkInput(),
		},
		Outputs: chunkerOutputs(),
	}
}

func (n *frameExactChunker) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in chunkerInputs
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	return n.env.chunk(ctx, in, chunker.ModeFrameExact)
}

// fpsChunker retimes to a fixed rate before splitting.
type fpsChunker struct{ env *Env }

func (n *fpsChunker) Schema() Schema {
	return Schema{
		ID:          "VideoFPSChunker",
		DisplayName: "Video FPS Chunker",
		Category:    categoryVideo,
		Description: "Stretch video to a fixed FPS without dropping frames, then split into chunks",
		Inputs: []Input{
			videoInput("The video to process"),
			stringInput("output_dir", n.env.outputDir(chunker.ModeStretch), "Base output directory name"),
			n.env.framesPerChunkInput(),
			{Name: "target_fps", Type: TypeFloat, Default: n.env.targetFPS(), Min: bound(1), Max: bound(240), Step: bound(1), Tooltip: "Output frame rate"},
		},
		Outputs: chunkerOutputs(),
	}
}

func (n *fpsChunker) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in chunkerInputs
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	return n.env.chunk(ctx, in, chunker.ModeStretch)
}

func (e *Env) chunk(ctx context.Context, in chunkerInputs, mode chunker.Mode) (*ChunkerOutput, error) {
	if e.Pipeline == nil {
		return nil, fmt.Errorf("chunking pipeline is not configured")
	}
	path, cleanup, err := e.resolveVideo(in.Video)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	s := e.Defaults
	s.OutputDirName = in.OutputDir
	s.FramesPerChunk = in.FramesPerChunk
	s.TargetFPS = in.TargetFPS

	var out *pipeline.Output
	if mode == chunker.ModeStretch {
		out, err = e.Pipeline.Stretch(ctx, path, s)
	} else {
		out, err = e.Pipeline.FrameExact(ctx, path, s)
	}
	if err != nil {
		return nil, err
	}
	return &ChunkerOutput{ChunkDirPath: out.ChunkDir, TotalChunks: out.TotalChunks, Commands: out.Commands}, nil
}

// CheckOutput reports whether a video already has a chunk directory.
type CheckOutput struct {
	ChunkDirPath string `json:"chunk_dir_path"`
	IsProcessed  bool   `json:"is_processed"`
}

type checkProcessed struct{ env *Env }

func (n *checkProcessed) Schema() Schema {
	return Schema{
		ID:          "CheckVideoProcessed",
		DisplayName: "Check Video Processed",
		Category:    categoryVideo,
		Description: "Check if video has already been chunked",
		Inputs:      []Input{videoInput("Video to check")},
		Outputs:     []Output{{Name: "chunk_dir_path", Type: TypeString}, {Name: "is_processed", Type: TypeBoolean}},
	}
}

func (n *checkProcessed) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in struct {
		Video string `json:"video"`
	}
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	if n.env.Pipeline == nil {
		return nil, fmt.Errorf("chunking pipeline is not configured")
	}
	path, cleanup, err := n.env.resolveVideo(in.Video)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	dir, ok, err := n.env.Pipeline.Check(ctx, path)
	if err != nil {
		return nil, err
	}
	return &CheckOutput{ChunkDirPath: dir, IsProcessed: ok}, nil
}

// InfoOutput is the stream summary returned by VideoInfo.
type InfoOutput struct {
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Duration    float64 `json:"duration"`
	TotalFrames int     `json:"total_frames"`
	Codec       string  `json:"codec"`
}

type videoInfo struct{ env *Env }

func (n *videoInfo) Schema() Schema {
	return Schema{
		ID:          "VideoInfo",
		DisplayName: "Video Info",
		Category:    categoryVideo,
		Description: "Get video metadata (FPS, resolution, duration, frames, codec)",
		Inputs:      []Input{videoInput("Video to analyze")},
		Outputs: []Output{
			{Name: "fps", Type: TypeFloat},
			{Name: "width", Type: TypeInt},
			{Name: "height", Type: TypeInt},
			{Name: "duration", Type: TypeFloat},
			{Name: "total_frames", Type: TypeInt},
			{Name: "codec", Type: TypeString},
		},
	}
}

func (n *videoInfo) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in struct {
		Video string `json:"video"`
	}
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	if n.env.Pipeline == nil {
		return nil, fmt.Errorf("chunking pipeline is not configured")
	}
	path, cleanup, err := n.env.resolveVideo(in.Video)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	info, err := n.env.Pipeline.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &InfoOutput{
		FPS:         info.FPS,
		Width:       info.Width,
		Height:      info.Height,
		Duration:    info.Duration,
		TotalFrames: info.TotalFrames,
		Codec:       info.Codec,
	}, nil
}

// ConcatOutput names the file written by ConcatenateVideosFromDirectory.
type ConcatOutput struct {
	OutputPath string `json:"output_path"`
}

type concatDirectory struct{ env *Env }

func (n *concatDirectory) Schema() Schema {
	return Schema{
		ID:          "ConcatenateVideosFromDirectory",
		DisplayName: "Concatenate Videos From Directory",
		Category:    categoryVideo,
		Description: "Combine videos from directory by glob pattern, save with numbered output",
		Inputs: []Input{
			stringInput("directory_path", "", "Absolute path to directory containing videos"),
			stringInput("glob_pattern", "*-audio.mp4", "Glob pattern to match video files (e.g., *.mp4, *-audio.mp4)"),
			stringInput("output_prefix", "concatenated", "Output prefix (supports subdirs: 'vace/vid' or just 'vid')"),
		},
		Outputs: []Output{{Name: "output_path", Type: TypeString}},
	}
}

func (n *concatDirectory) Execute(ctx context.Context, raw json.RawMessage) (any, error) {
	var in struct {
		Dir     string `json:"directory_path"`
		Pattern string `json:"glob_pattern"`
		Prefix  string `json:"output_prefix"`
	}
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	if in.Dir == "" {
		return nil, fmt.Errorf("directory_path cannot be empty")
	}
	if n.env.Concatenator == nil {
		return nil, fmt.Errorf("concatenator is not configured")
	}

	out, err := n.env.Concatenator.ConcatenateDirectory(ctx, in.Dir, in.Pattern, n.env.Defaults.OutputRoot, in.Prefix)
	if err != nil {
		return nil, err
	}
	return &ConcatOutput{OutputPath: out}, nil
}

// intToString connects integer outputs to string inputs.
type intToString struct{}

func (intToString) Schema() Schema {
	return Schema{
		ID:          "IntToString",
		DisplayName: "Int to String",
		Category:    "utils",
		Description: "Convert integer to string",
		Inputs:      []Input{{Name: "value", Type: TypeInt, Tooltip: "Integer value to convert"}},
		Outputs:     []Output{{Name: "string", Type: TypeString}},
	}
}

func (n intToString) Execute(_ context.Context, raw json.RawMessage) (any, error) {
	var in struct {
		Value int64 `json:"value"`
	}
	if err := n.Schema().decode(raw, &in); err != nil {
		return nil, err
	}
	return map[string]string{"string": strconv.FormatInt(in.Value, 10)}, nil
}
