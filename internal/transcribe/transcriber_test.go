package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/logging"
	"slidecast/internal/services"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,500
First slide narration.

2
00:00:02,500 --> 00:00:05,000
Second slide narration.
`

func writeClip(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestTranscriber(cfg Config) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = "base"
	}
	return New(cfg, logging.NewNop())
}

func TestTranscribeFailsWithNoUsableClips(t *testing.T) {
	dir := t.TempDir()
	tiny := writeClip(t, dir, "seg1.mp3", 10)
	tr := newTestTranscriber(Config{})
	calls := 0
	tr.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		calls++
		return nil
	})

	err := tr.Transcribe(context.Background(), []string{tiny, filepath.Join(dir, "missing.mp3")}, dir, filepath.Join(dir, "out.srt"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no commands without usable input, got %d", calls)
	}
}

func TestTranscribeProducesValidatedSRT(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "seg1.mp3", 4096)
	tr := newTestTranscriber(Config{Language: "zh"})

	var sawLanguage bool
	tr.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		switch {
		case strings.HasSuffix(name, "ffmpeg") || name == "ffmpeg":
			// concat output
			return os.WriteFile(args[len(args)-1], make([]byte, 8192), 0o644)
		case name == "uvx":
			for i, arg := range args {
				if arg == "--language" && i+1 < len(args) && args[i+1] == "zh" {
					sawLanguage = true
				}
			}
			return os.WriteFile(filepath.Join(dir, "narration_combined.srt"), []byte(sampleSRT), 0o644)
		default:
			t.Fatalf("unexpected command %s", name)
			return nil
		}
	})

	out := filepath.Join(dir, "final.srt")
	if err := tr.Transcribe(context.Background(), []string{clip}, dir, out); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if !sawLanguage {
		t.Fatal("expected --language hint forwarded to whisperx")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "-->") {
		t.Fatal("output missing timing lines")
	}
	if _, err := os.Stat(filepath.Join(dir, "narration_combined.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("combined audio should be cleaned up, stat err=%v", err)
	}
}

func TestTranscribeRejectsEmptySubtitleOutput(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "seg1.mp3", 4096)
	tr := newTestTranscriber(Config{})
	tr.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		if name == "uvx" {
			return os.WriteFile(filepath.Join(dir, "narration_combined.srt"), []byte("\n"), 0o644)
		}
		return os.WriteFile(args[len(args)-1], make([]byte, 8192), 0o644)
	})

	out := filepath.Join(dir, "final.srt")
	err := tr.Transcribe(context.Background(), []string{clip}, dir, out)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "narration_combined.srt")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("invalid subtitle output should be deleted, stat err=%v", statErr)
	}
}

func TestSimplifyIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "seg1.mp3", 4096)
	tr := newTestTranscriber(Config{SimplifyChinese: true, OpenCCBinary: "opencc"})
	tr.SetCommandRunner(func(ctx context.Context, name string, args ...string) error {
		switch name {
		case "uvx":
			return os.WriteFile(filepath.Join(dir, "narration_combined.srt"), []byte(sampleSRT), 0o644)
		case "opencc":
			return errors.New("conversion failed")
		default:
			return os.WriteFile(args[len(args)-1], make([]byte, 8192), 0o644)
		}
	})

	out := filepath.Join(dir, "final.srt")
	if err := tr.Transcribe(context.Background(), []string{clip}, dir, out); err != nil {
		t.Fatalf("opencc failure must not fail transcription: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != sampleSRT {
		t.Fatal("original subtitles should survive a failed simplification pass")
	}
}

func TestHasUsableInput(t *testing.T) {
	dir := t.TempDir()
	tiny := writeClip(t, dir, "tiny.mp3", minClipBytes)
	ok := writeClip(t, dir, "ok.mp3", minClipBytes+1)

	if HasUsableInput([]string{tiny, ""}) {
		t.Fatal("clips at the size floor are not usable")
	}
	if !HasUsableInput([]string{tiny, ok}) {
		t.Fatal("expected at least one usable clip")
	}
}

func TestValidateSRT(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.srt")
	if err := os.WriteFile(valid, []byte(sampleSRT), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := validateSRT(valid); err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}

	noTiming := filepath.Join(dir, "notiming.srt")
	if err := os.WriteFile(noTiming, []byte("hello subtitle world\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := validateSRT(noTiming); err == nil {
		t.Fatal("file without timing lines must be rejected")
	}

	badTimestamp := filepath.Join(dir, "badts.srt")
	if err := os.WriteFile(badTimestamp, []byte("1\nbogus --> values here\ntext\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := validateSRT(badTimestamp); err == nil {
		t.Fatal("file with unparseable timestamps must be rejected")
	}
}
