// Package slides defines the per-slide unit of work shared between the
// prepare and compose stages, along with the alignment and duration policy
// that governs it.
package slides

import (
	"encoding/json"
	"fmt"
)

// MinUsableAudio is the duration floor below which a narration clip is
// treated as absent. ffprobe reports near-zero durations for corrupt clips.
const MinUsableAudio = 0.01

// Record captures one slide's assets as they accumulate through the pipeline.
// AudioPath is empty and AudioDuration zero when narration was skipped or
// failed for the slide.
type Record struct {
	Number        int     `json:"number"`
	ImagePath     string  `json:"image_path"`
	Notes         string  `json:"notes"`
	AudioPath     string  `json:"audio_path,omitempty"`
	AudioDuration float64 `json:"audio_duration"`
}

// HasUsableAudio reports whether the slide carries narration long enough to
// pace its segment.
func (r Record) HasUsableAudio() bool {
	return r.AudioPath != "" && r.AudioDuration >= MinUsableAudio
}

// ClipDuration returns the display duration for the slide: the narration
// length when usable, otherwise the configured default.
func (r Record) ClipDuration(defaultSeconds float64) float64 {
	if r.HasUsableAudio() {
		return r.AudioDuration
	}
	return defaultSeconds
}

// Align pairs rendered images with speaker notes, truncating both lists to
// the shorter length. Returns an error when nothing remains after
// truncation.
func Align(images []string, notes []string) ([]Record, error) {
	count := len(images)
	if len(notes) < count {
		count = len(notes)
	}
	if count == 0 {
		return nil, fmt.Errorf("no aligned slides: %d images, %d notes", len(images), len(notes))
	}

	records := make([]Record, count)
	for i := 0; i < count; i++ {
		records[i] = Record{
			Number:    i + 1,
			ImagePath: images[i],
			Notes:     notes[i],
		}
	}
	return records, nil
}

// Marshal serializes records for persistence on the queue job.
func Marshal(records []Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal slide records: %w", err)
	}
	return string(data), nil
}

// Parse deserializes records persisted on a queue job.
func Parse(raw string) ([]Record, error) {
	if raw == "" {
		return nil, fmt.Errorf("no slide records recorded")
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("parse slide records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("slide record list is empty")
	}
	return records, nil
}
