package chunker

// MediaInfo represents the minimal media metadata needed for chunk planning.
//
// This interface decouples the planner from the probing implementation
// (ffprobe.ProbeResult satisfies it), so plans can be computed and tested
// without running an external process.
type MediaInfo interface {
	// GetFPS returns the source frame rate in frames per second.
	GetFPS() (float64, error)

	// GetFrameCount returns the total number of video frames.
	GetFrameCount() (int, error)
}
