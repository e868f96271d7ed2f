package main

import (
	"context"
	"path/filepath"
	"testing"

	"slidecast/internal/queue"
	"slidecast/internal/testsupport"
)

func TestSubmitQueuesDeck(t *testing.T) {
	env := setupCLITestEnv(t)

	deckPath := filepath.Join(testsupport.BaseDir(env.cfg), "lecture.pptx")
	testsupport.WriteFile(t, deckPath, 2048)

	exports := filepath.Join(testsupport.BaseDir(env.cfg), "exports")
	out, err := runCLI(t, env, "submit", deckPath, "--voice", "zh-CN-YunjianNeural", "--rate", "120", "--output", exports)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued job")
	requireContains(t, out, "lecture")
	requireContains(t, out, "zh-CN-YunjianNeural")

	jobs, err := env.store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(jobs))
	}
	if jobs[0].RatePercent != 120 {
		t.Fatalf("expected rate 120, got %d", jobs[0].RatePercent)
	}
	if jobs[0].OutputDir != exports {
		t.Fatalf("expected output dir %s, got %q", exports, jobs[0].OutputDir)
	}
}

func TestSubmitRejectsUnknownVoice(t *testing.T) {
	env := setupCLITestEnv(t)

	deckPath := filepath.Join(testsupport.BaseDir(env.cfg), "lecture.pptx")
	testsupport.WriteFile(t, deckPath, 2048)

	if _, err := runCLI(t, env, "submit", deckPath, "--voice", "not-a-voice"); err == nil {
		t.Fatal("expected unknown voice to be rejected")
	}
}
