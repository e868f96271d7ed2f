package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/services"
	"slidecast/internal/voices"
)

func newTestSynthesizer(t *testing.T, maxRetries int) *Synthesizer {
	t.Helper()
	return New(Config{
		Binary:      "edge-tts",
		RatePercent: 100,
		MaxRetries:  maxRetries,
		RetryDelay:  time.Millisecond,
	}, voices.Default(), logging.NewNop())
}

func TestSynthesizeRejectsUnknownVoice(t *testing.T) {
	s := newTestSynthesizer(t, 3)
	calls := 0
	s.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		return nil
	})

	err := s.Synthesize(context.Background(), "zh-CN-NotARealVoice", "hello", 100, filepath.Join(t.TempDir(), "out.mp3"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("unknown voice must fail before any attempt, got %d calls", calls)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	s := newTestSynthesizer(t, 3)
	err := s.Synthesize(context.Background(), "zh-CN-XiaoxiaoNeural", "   ", 100, filepath.Join(t.TempDir(), "out.mp3"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSynthesizeRetryBound(t *testing.T) {
	const maxRetries = 2
	s := newTestSynthesizer(t, maxRetries)
	out := filepath.Join(t.TempDir(), "clip.mp3")
	calls := 0
	s.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		return errors.New("synthesis exploded")
	})

	err := s.Synthesize(context.Background(), "zh-CN-XiaoxiaoNeural", "hello", 100, out)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if calls != maxRetries+1 {
		t.Fatalf("expected exactly %d attempts, got %d", maxRetries+1, calls)
	}
	if _, statErr := os.Stat(out); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no residual output after final failure, stat err=%v", statErr)
	}
}

func TestSynthesizeSucceedsAfterRetry(t *testing.T) {
	s := newTestSynthesizer(t, 1)
	out := filepath.Join(t.TempDir(), "clip.mp3")
	calls := 0
	s.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		if calls == 1 {
			// Simulate a truncated clip left behind by the CLI.
			return os.WriteFile(out, []byte("x"), 0o644)
		}
		return os.WriteFile(out, []byte(strings.Repeat("a", minOutputBytes+1)), 0o644)
	})

	if err := s.Synthesize(context.Background(), "en-US-JennyNeural", "hello", 100, out); err != nil {
		t.Fatalf("expected success on retry, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() <= minOutputBytes {
		t.Fatalf("expected usable output, got %d bytes", info.Size())
	}
}

func TestSynthesizeTreatsTinyOutputAsFailure(t *testing.T) {
	s := newTestSynthesizer(t, 0)
	out := filepath.Join(t.TempDir(), "clip.mp3")
	s.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return os.WriteFile(out, []byte("tiny"), 0o644)
	})

	err := s.Synthesize(context.Background(), "en-US-JennyNeural", "hello", 100, out)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSynthesizePassesPerCallRate(t *testing.T) {
	s := newTestSynthesizer(t, 0)
	out := filepath.Join(t.TempDir(), "clip.mp3")
	var gotArgs []string
	s.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = append([]string(nil), args...)
		return os.WriteFile(out, []byte(strings.Repeat("a", minOutputBytes+1)), 0o644)
	})

	if err := s.Synthesize(context.Background(), "en-US-JennyNeural", "hello", 120, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	rate := ""
	for i, arg := range gotArgs {
		if arg == "--rate" && i+1 < len(gotArgs) {
			rate = gotArgs[i+1]
		}
	}
	if rate != "+20%" {
		t.Fatalf("expected per-call rate +20%% on the command line, got %q (args %v)", rate, gotArgs)
	}
}

func TestSynthesizeZeroRateUsesConfiguredDefault(t *testing.T) {
	s := New(Config{
		Binary:      "edge-tts",
		RatePercent: 80,
		RetryDelay:  time.Millisecond,
	}, voices.Default(), logging.NewNop())
	out := filepath.Join(t.TempDir(), "clip.mp3")
	var gotArgs []string
	s.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		gotArgs = append([]string(nil), args...)
		return os.WriteFile(out, []byte(strings.Repeat("a", minOutputBytes+1)), 0o644)
	})

	if err := s.Synthesize(context.Background(), "en-US-JennyNeural", "hello", 0, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "--rate -20%") {
		t.Fatalf("expected configured default rate -20%%, got args %v", gotArgs)
	}
}

func TestRateArgument(t *testing.T) {
	cases := []struct {
		rate int
		want string
	}{
		{100, "+0%"},
		{120, "+20%"},
		{80, "-20%"},
	}
	for _, tc := range cases {
		if got := rateArgument(tc.rate); got != tc.want {
			t.Fatalf("rateArgument(%d) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}
