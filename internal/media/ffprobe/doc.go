// Package ffprobe shells out to ffprobe for narration clip inspection. The
// preparer uses it to measure per-slide audio durations before segment
// assembly.
package ffprobe
