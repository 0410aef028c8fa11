package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
)

// Stats holds the encoding statistics ffmpeg prints on stderr.
type Stats struct {
	Frame   int64   // frames written so far
	FPS     float64 // processing rate
	Time    string  // output timestamp HH:MM:SS.ms
	Bitrate string
	Speed   float64 // realtime multiplier
}

// StatsParser extracts Stats from ffmpeg's stderr output.
type StatsParser struct {
	frameRegex   *regexp.Regexp
	fpsRegex     *regexp.Regexp
	timeRegex    *regexp.Regexp
	bitrateRegex *regexp.Regexp
	speedRegex   *regexp.Regexp
}

// NewStatsParser creates a parser for both the -stats line format and the
// key=value -progress format.
func NewStatsParser() *StatsParser {
	return &StatsParser{
		frameRegex:   regexp.MustCompile(`(?:^|\s)frame=\s*(\d+)`),
		fpsRegex:     regexp.MustCompile(`(?:^|\s)fps=\s*([0-9.]+)`),
		timeRegex:    regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*(-?[0-9:\.]+)`),
		bitrateRegex: regexp.MustCompile(`(?:^|\s)bitrate=\s*([0-9.]+\s*kbits/s)`),
		speedRegex:   regexp.MustCompile(`(?:^|\s)speed=\s*([0-9.]+)x?`),
	}
}

// ParseLine updates stats from a single line. It reports whether any field was found.
func (p *StatsParser) ParseLine(line string, stats *Stats) bool {
	line = strings.TrimSpace(line)
	if line == "" || line == "progress=continue" || line == "progress=end" {
		return false
	}

	updated := false

	if m := p.frameRegex.FindStringSubmatch(line); len(m) > 1 {
		if frame, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			stats.Frame = frame
			updated = true
		}
	}
	if m := p.fpsRegex.FindStringSubmatch(line); len(m) > 1 {
		if fps, err := strconv.ParseFloat(m[1], 64); err == nil {
			stats.FPS = fps
			updated = true
		}
	}
	if m := p.timeRegex.FindStringSubmatch(line); len(m) > 1 {
		stats.Time = m[1]
		updated = true
	}
	if m := p.bitrateRegex.FindStringSubmatch(line); len(m) > 1 {
		stats.Bitrate = strings.ReplaceAll(m[1], " ", "")
		updated = true
	}
	if m := p.speedRegex.FindStringSubmatch(line); len(m) > 1 {
		if speed, err := strconv.ParseFloat(m[1], 64); err == nil {
			stats.Speed = speed
			updated = true
		}
	}

	return updated
}

// Final returns the last statistics reported in stderr.
//
// ffmpeg rewrites its status line with carriage returns, so both \r and \n
// are treated as line breaks. ok is false when no frame count was printed.
func (p *StatsParser) Final(stderr []byte) (stats Stats, ok bool) {
	lines := strings.FieldsFunc(string(stderr), func(r rune) bool { return r == '\r' || r == '\n' })
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.Contains(lines[i], "frame=") {
			continue
		}
		if p.ParseLine(lines[i], &stats) {
			return stats, true
		}
	}
	return stats, false
}

// TimeToSeconds converts HH:MM:SS.ms to seconds; malformed input yields 0.
func TimeToSeconds(ts string) float64 {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}

	return hours*3600 + minutes*60 + seconds
}
