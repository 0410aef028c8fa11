// Package stretch builds the single-pass retime-and-segment command used by
// the FPS-stretching chunker.
package stretch

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"vidchunk/chunker"
	"vidchunk/command"
	"vidchunk/ffmpeg"
)

// OutputPattern is the segment muxer file pattern; ordinals start at 0.
const OutputPattern = "%d.mp4"

// StretchBuilder re-encodes a whole video at the plan's output frame rate and
// splits it with the segment muxer at the plan's frame boundaries.
type StretchBuilder struct {
	plan      *chunker.Plan
	outputDir string

	bin      string
	settings command.EncodeSettings
	priority int
}

// NewStretchBuilder creates a stretch command for plan writing into outputDir.
func NewStretchBuilder(plan *chunker.Plan, outputDir string) *StretchBuilder {
	return &StretchBuilder{
		plan:      plan,
		outputDir: outputDir,
		bin:       "ffmpeg",
		settings:  command.DefaultEncodeSettings(),
		priority:  command.PriorityHigh,
	}
}

// SetBinary sets the ffmpeg executable path
func (s *StretchBuilder) SetBinary(bin string) *StretchBuilder {
	s.bin = bin
	return s
}

// SetEncodeSettings replaces codec, CRF, preset and pixel format.
// The audio codec is ignored: stretched output carries no audio.
func (s *StretchBuilder) SetEncodeSettings(settings command.EncodeSettings) *StretchBuilder {
	s.settings = settings
	return s
}

// SetPriority sets the task priority
func (s *StretchBuilder) SetPriority(priority int) command.Command {
	s.priority = priority
	return s
}

// Validate checks the plan and settings.
func (s *StretchBuilder) Validate() error {
	if s.plan == nil {
		return fmt.Errorf("plan cannot be nil")
	}
	if s.plan.Mode != chunker.ModeStretch {
		return fmt.Errorf("plan mode must be %s, got %s", chunker.ModeStretch, s.plan.Mode)
	}
	if s.plan.OutputFPS <= 0 {
		return fmt.Errorf("target fps must be positive, got %.3f", s.plan.OutputFPS)
	}
	if s.outputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	return s.settings.Validate()
}

// BuildArgs constructs the ffmpeg arguments.
//
// setpts multiplies every timestamp by source_fps/target_fps so each source
// frame survives and is shown for 1/target_fps seconds. Keyframes are forced
// on every chunk boundary so the segment muxer can cut exactly there.
func (s *StretchBuilder) BuildArgs() []string {
	kwargs := ffmpeggo.KwArgs{
		"c:v":                  s.settings.Codec,
		"crf":                  s.settings.CRF,
		"r":                    formatFloat(s.plan.OutputFPS),
		"force_key_frames":     fmt.Sprintf("expr:eq(mod(n,%d),0)", s.plan.FramesPerChunk),
		"f":                    "segment",
		"reset_timestamps":     1,
		"segment_start_number": 0,
	}
	if s.settings.Preset != "" {
		kwargs["preset"] = s.settings.Preset
	}
	if s.settings.PixelFormat != "" {
		kwargs["pix_fmt"] = s.settings.PixelFormat
	}
	if splits := s.plan.SplitFrames(); len(splits) > 0 {
		kwargs["segment_frames"] = joinInts(splits)
	}

	// Only the filtered video stream is mapped, so audio is dropped.
	args := ffmpeggo.Input(s.plan.SourcePath).
		Filter("setpts", ffmpeggo.Args{formatFloat(s.plan.StretchFactor()) + "*PTS"}).
		Output(s.GetOutputPath(), kwargs).
		OverWriteOutput().
		GetArgs()

	return append([]string{"-hide_banner", "-nostdin"}, args...)
}

// Run executes the stretch command through runner.
func (s *StretchBuilder) Run(ctx context.Context, runner ffmpeg.Runner) (*ffmpeg.Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return command.Execute(ctx, runner, s.bin, s)
}

// DryRun returns the command that would be executed without running it
func (s *StretchBuilder) DryRun() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s.bin + " " + strings.Join(s.BuildArgs(), " "), nil
}

// GetPriority returns the task priority
func (s *StretchBuilder) GetPriority() int {
	return s.priority
}

// GetTaskType returns the task type identifier
func (s *StretchBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeStretch
}

// GetInputPath returns the source video path
func (s *StretchBuilder) GetInputPath() string {
	return s.plan.SourcePath
}

// GetOutputPath returns the segment output pattern
func (s *StretchBuilder) GetOutputPath() string {
	return filepath.Join(s.outputDir, OutputPattern)
}

// GetSegmentPath returns the path for the segment at the given index.
func (s *StretchBuilder) GetSegmentPath(index int) string {
	return filepath.Join(s.outputDir, fmt.Sprintf(OutputPattern, index))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
