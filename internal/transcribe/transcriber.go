// Package transcribe generates burn-ready SRT subtitles from narration audio
// by running WhisperX over the concatenated clips.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/services"
)

const stageName = "transcribe"

// minClipBytes mirrors the synthesizer's truncation guard: clips at or below
// this size carry no usable speech and are excluded from transcription input.
const minClipBytes = 100

// Config carries transcription settings resolved from application config.
type Config struct {
	UvxBinary    string
	FFmpegBinary string
	// OpenCCBinary is empty when the optional converter is not installed.
	OpenCCBinary    string
	Model           string
	Language        string
	SimplifyChinese bool
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Transcriber runs WhisperX and post-processes its SRT output.
type Transcriber struct {
	cfg    Config
	logger *slog.Logger
	runner commandRunner
}

// New constructs a Transcriber.
func New(cfg Config, logger *slog.Logger) *Transcriber {
	t := &Transcriber{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
	t.runner = t.defaultRunner
	return t
}

// SetCommandRunner overrides external command execution. Intended for tests.
func (t *Transcriber) SetCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	if runner == nil {
		t.runner = t.defaultRunner
		return
	}
	t.runner = runner
}

// Transcribe concatenates the usable narration clips, runs WhisperX on the
// result, and writes a validated SRT file to outputSRT. workDir holds
// intermediate files and must already exist.
func (t *Transcriber) Transcribe(ctx context.Context, audioPaths []string, workDir, outputSRT string) error {
	usable := filterUsableClips(audioPaths)
	if len(usable) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "collect audio", "No usable narration clips to transcribe", nil)
	}
	t.logger.Info("starting transcription",
		slog.Int("clips", len(usable)),
		slog.String("model", t.cfg.Model),
	)

	combined := filepath.Join(workDir, "narration_combined.mp3")
	if err := t.concatClips(ctx, usable, combined); err != nil {
		return err
	}
	defer os.Remove(combined)

	start := time.Now()
	if err := t.runner(ctx, t.uvx(), t.buildWhisperXArgs(combined, workDir)...); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "whisperx", "WhisperX transcription failed", err)
	}

	// WhisperX names its output after the input file.
	generated := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(combined), filepath.Ext(combined))+".srt")
	if err := validateSRT(generated); err != nil {
		os.Remove(generated)
		return services.Wrap(services.ErrExternalTool, stageName, "validate srt", "WhisperX produced no usable subtitles", err)
	}
	if generated != outputSRT {
		if err := os.Rename(generated, outputSRT); err != nil {
			os.Remove(generated)
			return services.Wrap(services.ErrTransient, stageName, "move srt", "Failed to move subtitle file into place", err)
		}
	}

	t.simplify(ctx, outputSRT)

	t.logger.Info("transcription complete",
		slog.String("output", outputSRT),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HasUsableInput reports whether any of the clips would survive filtering.
// Callers use this to skip transcription before paying for a WhisperX run.
func HasUsableInput(audioPaths []string) bool {
	return len(filterUsableClips(audioPaths)) > 0
}

func filterUsableClips(audioPaths []string) []string {
	usable := make([]string, 0, len(audioPaths))
	for _, path := range audioPaths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() <= minClipBytes {
			continue
		}
		usable = append(usable, path)
	}
	return usable
}

// concatClips stream-copies the clips into a single file using the concat
// demuxer so WhisperX sees one continuous narration track.
func (t *Transcriber) concatClips(ctx context.Context, clips []string, outputPath string) error {
	playlist := outputPath + ".list.txt"
	var sb strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		fmt.Fprintf(&sb, "file '%s'\n", strings.ReplaceAll(abs, `'`, `'\''`))
	}
	if err := os.WriteFile(playlist, []byte(sb.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "write playlist", "Failed to write concat playlist", err)
	}
	defer os.Remove(playlist)

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", playlist,
		"-c", "copy",
		outputPath,
	}
	if err := t.runner(ctx, t.ffmpeg(), args...); err != nil {
		os.Remove(outputPath)
		return services.Wrap(services.ErrExternalTool, stageName, "concat audio", "Failed to concatenate narration clips", err)
	}
	return nil
}

func (t *Transcriber) buildWhisperXArgs(source, outputDir string) []string {
	args := []string{
		"whisperx",
		source,
		"--model", t.cfg.Model,
		"--device", "cpu",
		"--compute_type", "float32",
		"--output_dir", outputDir,
		"--output_format", "srt",
		"--segment_resolution", "sentence",
	}
	if lang := strings.TrimSpace(t.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// simplify runs an optional traditional-to-simplified Chinese pass over the
// subtitle file. Failures leave the original file untouched.
func (t *Transcriber) simplify(ctx context.Context, srtPath string) {
	if !t.cfg.SimplifyChinese {
		return
	}
	binary := strings.TrimSpace(t.cfg.OpenCCBinary)
	if binary == "" {
		t.logger.Debug("opencc not available, skipping simplification")
		return
	}
	tmpPath := srtPath + ".t2s.tmp"
	err := t.runner(ctx, binary, "-i", srtPath, "-o", tmpPath, "-c", "t2s")
	if err == nil {
		err = os.Rename(tmpPath, srtPath)
	}
	if err != nil {
		os.Remove(tmpPath)
		logging.WarnWithContext(t.logger, "chinese simplification failed, keeping original subtitles", "opencc_failed",
			logging.Error(err),
		)
	}
}

func (t *Transcriber) uvx() string {
	if t.cfg.UvxBinary != "" {
		return t.cfg.UvxBinary
	}
	return "uvx"
}

func (t *Transcriber) ffmpeg() string {
	if t.cfg.FFmpegBinary != "" {
		return t.cfg.FFmpegBinary
	}
	return "ffmpeg"
}

func (t *Transcriber) defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return fmt.Errorf("%s: %w: %s", name, err, trimmed)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
