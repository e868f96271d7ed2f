// Package mux drives ffmpeg to assemble per-slide segments, concatenate them
// into a single video, and burn subtitles into the final cut.
package mux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"slidecast/internal/logging"
	"slidecast/internal/services"
)

// minUsableAudioBytes matches the synthesizer's floor for a real clip.
const minUsableAudioBytes = 100

// Config carries muxer settings resolved from application config.
type Config struct {
	FFmpegBinary string
	TargetWidth  int
	TargetFPS    int
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Builder assembles video segments and final outputs.
type Builder struct {
	cfg    Config
	logger *slog.Logger
	runner commandRunner
}

// New constructs a Builder.
func New(cfg Config, logger *slog.Logger) *Builder {
	b := &Builder{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "mux"),
	}
	b.runner = b.runCommand
	return b
}

// SetCommandRunner overrides command execution; used by tests.
func (b *Builder) SetCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	if runner == nil {
		b.runner = b.runCommand
		return
	}
	b.runner = runner
}

// BuildSegment renders a still image into a video segment of the given
// duration, muxing in narration audio when a usable clip exists. The video
// is encoded first without audio so a broken clip cannot poison the frame
// timeline; audio is muxed in a stream-copy second pass.
func (b *Builder) BuildSegment(ctx context.Context, imagePath string, duration float64, audioPath, outputPath string) error {
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, "segment", "validate duration",
			fmt.Sprintf("non-positive duration %.3f", duration), nil)
	}

	width := b.cfg.TargetWidth
	height := width * 9 / 16
	fps := b.cfg.TargetFPS
	vf := fmt.Sprintf(
		"scale=%d:-2:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p,fps=%d",
		width, width, height, fps,
	)

	silentPath := outputPath + ".video.mp4"
	cleanup := func() {
		_ = os.Remove(silentPath)
		_ = os.Remove(outputPath)
	}

	err := b.runner(ctx, b.ffmpeg(),
		"-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(fps),
		"-i", imagePath,
		"-vf", vf,
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		silentPath,
	)
	if err != nil {
		cleanup()
		return services.Wrap(services.ErrExternalTool, "segment", "encode slide video", "", err)
	}

	if !usableAudio(audioPath) {
		if err := os.Rename(silentPath, outputPath); err != nil {
			cleanup()
			return services.Wrap(services.ErrTransient, "segment", "finalize silent segment", "", err)
		}
		return nil
	}

	err = b.runner(ctx, b.ffmpeg(),
		"-y",
		"-i", silentPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "128k",
		"-shortest",
		outputPath,
	)
	_ = os.Remove(silentPath)
	if err != nil {
		cleanup()
		return services.Wrap(services.ErrExternalTool, "segment", "mux narration", "", err)
	}
	return nil
}

// Concat joins inputs into a single container with stream copy. Inputs that
// vanished are skipped with a warning; an empty effective list is fatal. The
// temporary playlist never survives the call.
func (b *Builder) Concat(ctx context.Context, inputs []string, outputPath string) error {
	existing := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if _, err := os.Stat(input); err != nil {
			logging.WarnWithContext(b.logger, "skipping missing concat input", "concat_input_missing",
				logging.String("path", input))
			continue
		}
		existing = append(existing, input)
	}
	if len(existing) == 0 {
		return services.Wrap(services.ErrValidation, "concat", "collect inputs",
			"no inputs available to concatenate", nil)
	}

	listPath := outputPath + ".list.txt"
	var sb strings.Builder
	for _, input := range existing {
		sb.WriteString("file '")
		sb.WriteString(playlistEscape(input))
		sb.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "concat", "write playlist", "", err)
	}
	defer func() { _ = os.Remove(listPath) }()

	err := b.runner(ctx, b.ffmpeg(),
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outputPath,
	)
	if err != nil {
		_ = os.Remove(outputPath)
		return services.Wrap(services.ErrExternalTool, "concat", "ffmpeg concat", "", err)
	}
	return nil
}

// Burn renders subtitles into the video with the given ASS style. The input
// audio is stream-copied. On failure any partial output is removed.
func (b *Builder) Burn(ctx context.Context, inputVideo, srtPath, style, outputPath string) error {
	filter := fmt.Sprintf("subtitles=filename='%s':force_style='%s'",
		filterEscape(srtPath), filterEscape(style))

	err := b.runner(ctx, b.ffmpeg(),
		"-y",
		"-i", inputVideo,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "22",
		"-c:a", "copy",
		outputPath,
	)
	if err != nil {
		_ = os.Remove(outputPath)
		return services.Wrap(services.ErrExternalTool, "burn", "render subtitles", "", err)
	}
	return nil
}

func (b *Builder) ffmpeg() string {
	if b.cfg.FFmpegBinary != "" {
		return b.cfg.FFmpegBinary
	}
	return "ffmpeg"
}

func usableAudio(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > minUsableAudioBytes
}

func (b *Builder) runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(string(output)))
	}
	return nil
}
