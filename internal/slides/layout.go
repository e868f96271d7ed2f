package slides

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scratch directory layout shared by the prepare and compose stages. Every
// intermediate asset for a job lives under one scratch root so cleanup is a
// single directory removal.

// ScratchDirName builds the per-job scratch directory name. The run token
// keeps retried jobs from colliding with leftovers of earlier attempts.
func ScratchDirName(jobID int64, runToken, sourcePath string) string {
	return fmt.Sprintf("job_%d_%s_%s", jobID, runToken, SafeStem(sourcePath))
}

// ImagesDir returns the directory for rendered slide images.
func ImagesDir(scratchDir string) string {
	return filepath.Join(scratchDir, "images")
}

// AudioDir returns the directory for synthesized narration clips.
func AudioDir(scratchDir string) string {
	return filepath.Join(scratchDir, "audio")
}

// SegmentsDir returns the directory for per-slide video segments.
func SegmentsDir(scratchDir string) string {
	return filepath.Join(scratchDir, "segments")
}

// SafeStem reduces a source file name to a form safe for directory and file
// names: the extension is dropped and anything outside [A-Za-z0-9._-] becomes
// an underscore.
func SafeStem(sourcePath string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if stem == "" {
		return "deck"
	}
	var sb strings.Builder
	sb.Grow(len(stem))
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	cleaned := strings.Trim(sb.String(), "._")
	if cleaned == "" {
		return "deck"
	}
	return cleaned
}
