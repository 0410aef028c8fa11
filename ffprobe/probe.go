// Package ffprobe extracts the stream metadata the chunkers need (frame count,
// frame rate, dimensions, audio presence) using the ffprobe command-line tool.
package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidchunk/ffmpeg"
)

var (
	// ErrNoVideoStream is returned when the input has no video stream.
	ErrNoVideoStream = errors.New("no video stream found")

	// ErrNoFrames is returned for zero-frame inputs, which cannot be chunked.
	ErrNoFrames = errors.New("video has no frames")
)

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	CodecLongName string `json:"codec_long_name"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	RFrameRate    string `json:"r_frame_rate,omitempty"`
	AvgFrameRate  string `json:"avg_frame_rate,omitempty"`
	NbFrames      string `json:"nb_frames,omitempty"`
	NbReadFrames  string `json:"nb_read_frames,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	Duration      string `json:"duration,omitempty"`
}

// Format represents the container format information.
type Format struct {
	Filename       string `json:"filename"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// ProbeResult holds the metadata extracted from a media file.
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// VideoInfo is the flattened summary of the first video stream.
type VideoInfo struct {
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Duration    float64 `json:"duration"`
	TotalFrames int     `json:"total_frames"`
	Codec       string  `json:"codec"`
	HasAudio    bool    `json:"has_audio"`
}

// Prober runs ffprobe through an ffmpeg.Runner.
type Prober struct {
	bin    string
	runner ffmpeg.Runner
}

// NewProber creates a Prober for the ffprobe executable at bin.
func NewProber(bin string, runner ffmpeg.Runner) *Prober {
	return &Prober{bin: bin, runner: runner}
}

// BuildArgs returns the ffprobe arguments used to analyze sourcePath.
//
// -count_frames makes ffprobe decode the streams so nb_read_frames is exact
// even for containers whose header frame count is missing or wrong.
func BuildArgs(sourcePath string) []string {
	return []string{
		"-v", "error",
		"-count_frames",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		sourcePath,
	}
}

// Probe analyzes a media file and extracts its metadata.
//
// Example:
//
//	prober := ffprobe.NewProber(bins.FFprobe, runner)
//	result, err := prober.Probe(ctx, "/path/to/video.mp4")
//	if err != nil {
//	    return err
//	}
//	frames, _ := result.GetFrameCount()
//	fps, _ := result.GetFPS()
func (p *Prober) Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	res, err := p.runner.Run(ctx, p.bin, BuildArgs(sourcePath)...)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", sourcePath, err)
	}

	return Parse(res.Stdout)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	var videoStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "video" {
			videoStreams = append(videoStreams, stream)
		}
	}
	return videoStreams
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	var audioStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "audio" {
			audioStreams = append(audioStreams, stream)
		}
	}
	return audioStreams
}

// HasAudio reports whether at least one audio stream is present.
func (pr *ProbeResult) HasAudio() bool {
	return len(pr.GetAudioStreams()) > 0
}

// VideoStream returns the first video stream, the one every chunker operates on.
func (pr *ProbeResult) VideoStream() (*Stream, error) {
	streams := pr.GetVideoStreams()
	if len(streams) == 0 {
		return nil, ErrNoVideoStream
	}
	return &streams[0], nil
}

// GetFPS returns the frame rate of the first video stream.
//
// r_frame_rate is preferred; avg_frame_rate is used when it is absent or 0/0.
func (pr *ProbeResult) GetFPS() (float64, error) {
	vs, err := pr.VideoStream()
	if err != nil {
		return 0, err
	}

	for _, candidate := range []string{vs.RFrameRate, vs.AvgFrameRate} {
		if fps, err := ParseFrameRate(candidate); err == nil && fps > 0 {
			return fps, nil
		}
	}
	return 0, fmt.Errorf("frame rate not available (r_frame_rate=%q avg_frame_rate=%q)", vs.RFrameRate, vs.AvgFrameRate)
}

// GetFrameCount returns the total number of frames in the first video stream.
//
// Counted frames (nb_read_frames) win over the container header (nb_frames);
// as a last resort the count is derived from duration and frame rate.
// Zero frames yields ErrNoFrames.
func (pr *ProbeResult) GetFrameCount() (int, error) {
	vs, err := pr.VideoStream()
	if err != nil {
		return 0, err
	}

	for _, candidate := range []string{vs.NbReadFrames, vs.NbFrames} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || candidate == "N/A" {
			continue
		}
		n, err := strconv.Atoi(candidate)
		if err != nil {
			return 0, fmt.Errorf("failed to parse frame count %q: %w", candidate, err)
		}
		if n <= 0 {
			return 0, ErrNoFrames
		}
		return n, nil
	}

	duration, derr := pr.GetDuration()
	fps, ferr := pr.GetFPS()
	if derr != nil || ferr != nil {
		return 0, fmt.Errorf("frame count not available in stream metadata")
	}
	n := int(math.Round(duration * fps))
	if n <= 0 {
		return 0, ErrNoFrames
	}
	return n, nil
}

// GetDuration returns the media duration in seconds.
//
// The container duration is used first, then the video stream duration.
func (pr *ProbeResult) GetDuration() (float64, error) {
	candidates := []string{pr.Format.Duration}
	if vs, err := pr.VideoStream(); err == nil {
		candidates = append(candidates, vs.Duration)
	}

	for _, c := range candidates {
		if c == "" || c == "N/A" {
			continue
		}
		duration, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse duration '%s': %w", c, err)
		}
		return duration, nil
	}
	return 0, fmt.Errorf("duration not available in format metadata")
}

// Info summarizes the first video stream.
//
// A missing duration is derived from frames / fps.
func (pr *ProbeResult) Info() (VideoInfo, error) {
	vs, err := pr.VideoStream()
	if err != nil {
		return VideoInfo{}, err
	}

	fps, err := pr.GetFPS()
	if err != nil {
		return VideoInfo{}, err
	}

	frames, err := pr.GetFrameCount()
	if err != nil && !errors.Is(err, ErrNoFrames) {
		return VideoInfo{}, err
	}

	duration, err := pr.GetDuration()
	if err != nil || duration == 0 {
		duration = 0
		if frames > 0 && fps > 0 {
			duration = float64(frames) / fps
		}
	}

	codec := vs.CodecName
	if codec == "" {
		codec = "unknown"
	}

	return VideoInfo{
		FPS:         fps,
		Width:       vs.Width,
		Height:      vs.Height,
		Duration:    duration,
		TotalFrames: frames,
		Codec:       codec,
		HasAudio:    pr.HasAudio(),
	}, nil
}

// ParseFrameRate parses ffprobe rationals such as "30000/1001" or plain "25".
func ParseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty frame rate")
	}

	num, den, isRatio := strings.Cut(s, "/")
	if !isRatio {
		return strconv.ParseFloat(s, 64)
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate numerator in %q: %w", s, err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate denominator in %q: %w", s, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q: zero denominator", s)
	}
	return n / d, nil
}
