// Package tts shells out to the edge-tts CLI to synthesize narration clips.
package tts

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
	"slidecast/internal/voices"
)

// minOutputBytes guards against truncated or empty clips that the CLI can
// leave behind on network failures.
const minOutputBytes = 100

// Config carries synthesizer settings resolved from application config.
type Config struct {
	Binary      string
	RatePercent int
	MaxRetries  int
	RetryDelay  time.Duration
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Synthesizer converts note text into narration audio files.
type Synthesizer struct {
	cfg     Config
	catalog *voices.Catalog
	logger  *slog.Logger
	runner  commandRunner
}

// New constructs a Synthesizer validating against the provided voice catalog.
func New(cfg Config, catalog *voices.Catalog, logger *slog.Logger) *Synthesizer {
	if catalog == nil {
		catalog = voices.Default()
	}
	s := &Synthesizer{
		cfg:     cfg,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "tts"),
	}
	s.runner = s.runCommand
	return s
}

// SetCommandRunner overrides command execution; used by tests.
func (s *Synthesizer) SetCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	if runner == nil {
		s.runner = s.runCommand
		return
	}
	s.runner = runner
}

// rateArgument renders the speech rate as the signed percentage offset the
// CLI expects: 100 -> "+0%", 120 -> "+20%", 80 -> "-20%".
func rateArgument(ratePercent int) string {
	return fmt.Sprintf("%+d%%", ratePercent-100)
}

// Synthesize produces an MP3 narration clip for the given text at the given
// speech rate; a zero rate falls back to the configured default. Unknown
// voices and empty text fail immediately; transient synthesis failures are
// retried up to MaxRetries additional attempts with a fixed delay. Partial
// output never survives a failed attempt.
func (s *Synthesizer) Synthesize(ctx context.Context, voiceID, text string, ratePercent int, outputPath string) error {
	if !s.catalog.Contains(voiceID) {
		return services.Wrap(services.ErrValidation, "synthesize", "validate voice",
			fmt.Sprintf("unknown voice %q", voiceID), nil)
	}
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "validate text",
			"empty narration text", nil)
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrTransient, "synthesize", "create output directory", "", err)
		}
	}

	attempts := s.cfg.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-ctx.Done():
				return services.Wrap(services.ErrTimeout, "synthesize", "retry wait", "", ctx.Err())
			}
		}

		lastErr = s.attempt(ctx, voiceID, text, ratePercent, outputPath)
		if lastErr == nil {
			return nil
		}
		// Any partial clip from the failed attempt must not leak into the
		// next one or the final output.
		_ = os.Remove(outputPath)
		s.logger.Warn("synthesis attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("attempts", attempts),
			logging.String("voice", voiceID),
			logging.Error(lastErr))
	}

	return services.Wrap(services.ErrExternalTool, "synthesize", "edge-tts",
		fmt.Sprintf("all %d attempts failed", attempts), lastErr)
}

func (s *Synthesizer) attempt(ctx context.Context, voiceID, text string, ratePercent int, outputPath string) error {
	binary := s.cfg.Binary
	if binary == "" {
		binary = "edge-tts"
	}
	if ratePercent == 0 {
		ratePercent = s.cfg.RatePercent
	}
	args := []string{
		"--voice", voiceID,
		"--rate", rateArgument(ratePercent),
		"--text", text,
		"--write-media", outputPath,
	}
	if err := s.runner(ctx, binary, args...); err != nil {
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("output missing after synthesis: %w", err)
	}
	if info.Size() <= minOutputBytes {
		return fmt.Errorf("output suspiciously small (%d bytes)", info.Size())
	}
	return nil
}

func (s *Synthesizer) runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
