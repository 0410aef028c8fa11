package extract

import (
	"context"
	"strings"
	"testing"

	"vidchunk/command"
	"vidchunk/ffmpeg/ffmpegtest"
	"vidchunk/models"
)

var _ command.Command = (*ExtractBuilder)(nil)

func mustChunk(t *testing.T, index, start, frames int, fps float64) *models.Chunk {
	t.Helper()
	c, err := models.NewChunk(index, start, frames, float64(start)/fps, float64(frames)/fps, "/videos/in.mp4")
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	return c
}

func TestExtractBuilder_BuildArgs(t *testing.T) {
	chunk := mustChunk(t, 2, 154, 77, 30)
	args := NewExtractBuilder(chunk, "/out/2.mp4", 30).BuildArgs()
	joined := strings.Join(args, " ")

	tests := []struct {
		name     string
		expected string
	}{
		{"seek before input", "-ss 00:00:05.133333 -i /videos/in.mp4"},
		{"video map", "-map 0:v:0"},
		{"optional audio map", "-map 0:a?"},
		{"frame count", "-frames:v 77"},
		{"duration clamp", "-t 2.566667"},
		{"codec", "-c:v libx264"},
		{"crf", "-crf 18"},
		{"preset", "-preset medium"},
		{"pixel format", "-pix_fmt yuv420p"},
		{"audio copy", "-c:a copy"},
		{"timestamps", "-avoid_negative_ts make_zero"},
		{"overwrite output", "-y /out/2.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(joined, tt.expected) {
				t.Errorf("Expected args to contain %q, got: %s", tt.expected, joined)
			}
		})
	}

	if args[len(args)-1] != "/out/2.mp4" {
		t.Errorf("Output path should be last, got %s", args[len(args)-1])
	}
}

func TestExtractBuilder_SeekPrecedesInput(t *testing.T) {
	args := NewExtractBuilder(mustChunk(t, 0, 0, 10, 24), "/out/0.mp4", 24).BuildArgs()

	ss, in := -1, -1
	for i, a := range args {
		switch a {
		case "-ss":
			ss = i
		case "-i":
			in = i
		}
	}
	if ss < 0 || in < 0 || ss > in {
		t.Errorf("Expected -ss before -i, got %v", args)
	}
}

func TestExtractBuilder_Settings(t *testing.T) {
	settings := command.DefaultEncodeSettings()
	settings.AudioCodec = "aac"

	joined := strings.Join(NewExtractBuilder(mustChunk(t, 0, 0, 10, 24), "/out/0.mp4", 24).
		SetEncodeSettings(settings).
		SetCRF(23).
		SetPreset("fast").
		AddExtraArgs("-movflags", "+faststart").
		BuildArgs(), " ")

	for _, want := range []string{"-crf 23", "-preset fast", "-c:a aac", "-movflags +faststart"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q, got: %s", want, joined)
		}
	}
}

func TestExtractBuilder_Validate(t *testing.T) {
	chunk := mustChunk(t, 0, 0, 10, 24)

	tests := []struct {
		name    string
		builder *ExtractBuilder
		wantErr bool
	}{
		{"valid", NewExtractBuilder(chunk, "/out/0.mp4", 24), false},
		{"nil chunk", NewExtractBuilder(nil, "/out/0.mp4", 24), true},
		{"empty output", NewExtractBuilder(chunk, "", 24), true},
		{"zero fps", NewExtractBuilder(chunk, "/out/0.mp4", 0), true},
		{"bad crf", NewExtractBuilder(chunk, "/out/0.mp4", 24).SetCRF(99), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractBuilder_Run(t *testing.T) {
	runner := &ffmpegtest.FakeRunner{}
	b := NewExtractBuilder(mustChunk(t, 1, 77, 77, 30), "/out/1.mp4", 30).SetBinary("/usr/bin/ffmpeg")

	if _, err := b.Run(context.Background(), runner); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := runner.CallsTo("/usr/bin/ffmpeg")
	if len(calls) != 1 {
		t.Fatalf("Expected 1 ffmpeg call, got %d", len(calls))
	}
	if got := ffmpegtest.ArgValue(calls[0].Args, "-frames:v"); got != "77" {
		t.Errorf("Expected -frames:v 77, got %s", got)
	}
}

func TestExtractBuilder_RunInvalid(t *testing.T) {
	runner := &ffmpegtest.FakeRunner{}
	if _, err := NewExtractBuilder(nil, "", 30).Run(context.Background(), runner); err == nil {
		t.Error("Expected error for invalid builder")
	}
	if len(runner.Calls()) != 0 {
		t.Error("Runner should not be invoked for an invalid builder")
	}
}

func TestExtractBuilder_DryRun(t *testing.T) {
	line, err := NewExtractBuilder(mustChunk(t, 0, 0, 5, 25), "/out/0.mp4", 25).DryRun()
	if err != nil {
		t.Fatalf("DryRun failed: %v", err)
	}
	if !strings.HasPrefix(line, "ffmpeg -hide_banner") {
		t.Errorf("Unexpected dry run: %s", line)
	}
}
