package queue_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"slidecast/internal/queue"
	"slidecast/internal/testsupport"
)

func newStore(t *testing.T) *queue.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return testsupport.MustOpenStore(t, cfg)
}

func TestNewJobDefaults(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/decks/Quarterly Review.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.Title != "Quarterly Review" {
		t.Fatalf("expected title from filename, got %q", job.Title)
	}
	if len(job.RunToken) != 8 {
		t.Fatalf("expected 8-character run token, got %q", job.RunToken)
	}
	if job.Voice != "zh-CN-XiaoxiaoNeural" || job.RatePercent != 100 {
		t.Fatalf("voice/rate not persisted: %q %d", job.Voice, job.RatePercent)
	}

	other, err := store.NewJob(ctx, "/decks/other.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	if err != nil {
		t.Fatalf("second NewJob: %v", err)
	}
	if other.RunToken == job.RunToken {
		t.Fatal("run tokens should differ between jobs")
	}
}

func TestNewJobPersistsOutputDir(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/decks/deck.pptx", "zh-CN-XiaoxiaoNeural", 100, "/exports/videos")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.OutputDir != "/exports/videos" {
		t.Fatalf("output dir not persisted, got %q", job.OutputDir)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.OutputDir != "/exports/videos" {
		t.Fatalf("output dir lost on reload, got %q", fetched.OutputDir)
	}

	plain, err := store.NewJob(ctx, "/decks/other.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if plain.OutputDir != "" {
		t.Fatalf("expected empty output dir by default, got %q", plain.OutputDir)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "/decks/deck.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	job.Status = queue.StatusPrepared
	job.SlideDataJSON = `[{"number":1}]`
	job.ScratchDir = filepath.Join("/tmp", "scratch")
	job.SetProgress("Preparing", "rendering", 42)
	job.AppendWarning("slide 3: narration synthesis failed")
	heartbeat := time.Now().UTC().Truncate(time.Second)
	job.LastHeartbeat = &heartbeat

	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded == nil {
		t.Fatal("job not found after update")
	}
	if loaded.Status != queue.StatusPrepared {
		t.Fatalf("status not persisted: %s", loaded.Status)
	}
	if loaded.SlideDataJSON != job.SlideDataJSON {
		t.Fatalf("slide data not persisted: %q", loaded.SlideDataJSON)
	}
	if loaded.ProgressStage != "Preparing" || loaded.ProgressPercent != 42 {
		t.Fatalf("progress not persisted: %q %.0f", loaded.ProgressStage, loaded.ProgressPercent)
	}
	if loaded.Warning == "" {
		t.Fatal("warning not persisted")
	}
	if loaded.LastHeartbeat == nil || !loaded.LastHeartbeat.Equal(heartbeat) {
		t.Fatalf("heartbeat not persisted: %v", loaded.LastHeartbeat)
	}
}

func TestNextForStatusesOrdering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.NewJob(ctx, "/decks/first.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := store.NewJob(ctx, "/decks/second.pptx", "zh-CN-XiaoxiaoNeural", 100, ""); err != nil {
		t.Fatalf("second: %v", err)
	}

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending job %d, got %+v", first.ID, next)
	}

	next, err = store.NextForStatuses(ctx, queue.StatusPrepared)
	if err != nil {
		t.Fatalf("NextForStatuses prepared: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no prepared jobs, got %d", next.ID)
	}
}

func TestRemoveAndClearScopes(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pending, _ := store.NewJob(ctx, "/decks/pending.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	completed, _ := store.NewJob(ctx, "/decks/completed.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	failed, _ := store.NewJob(ctx, "/decks/failed.pptx", "zh-CN-XiaoxiaoNeural", 100, "")

	completed.Status = queue.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	failed.Status = queue.StatusFailed
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	removed, err := store.Remove(ctx, pending.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	if removed, _ := store.Remove(ctx, pending.ID); removed {
		t.Fatal("second removal should report no rows")
	}

	count, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 completed cleared, got %d", count)
	}

	count, err = store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 failed cleared, got %d", count)
	}

	if _, err := store.NewJob(ctx, "/decks/extra.pptx", "zh-CN-XiaoxiaoNeural", 100, ""); err != nil {
		t.Fatalf("extra: %v", err)
	}
	count, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 cleared, got %d", count)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	jobs := make([]*queue.Job, 0, 4)
	for _, name := range []string{"a", "b", "c", "d"} {
		job, err := store.NewJob(ctx, "/decks/"+name+".pptx", "zh-CN-XiaoxiaoNeural", 100, "")
		if err != nil {
			t.Fatalf("NewJob %s: %v", name, err)
		}
		jobs = append(jobs, job)
	}

	jobs[1].Status = queue.StatusComposing
	jobs[2].Status = queue.StatusCompleted
	jobs[3].Status = queue.StatusFailed
	for _, job := range jobs[1:] {
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusComposing] != 1 || stats[queue.StatusCompleted] != 1 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 4 || health.Pending != 1 || health.Processing != 1 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	preparing, _ := store.NewJob(ctx, "/decks/preparing.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	composing, _ := store.NewJob(ctx, "/decks/composing.pptx", "zh-CN-XiaoxiaoNeural", 100, "")

	preparing.Status = queue.StatusPreparing
	composing.Status = queue.StatusComposing
	for _, job := range []*queue.Job{preparing, composing} {
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 reset, got %d", count)
	}

	reloaded, _ := store.GetByID(ctx, preparing.ID)
	if reloaded.Status != queue.StatusPending {
		t.Fatalf("preparing should roll back to pending, got %s", reloaded.Status)
	}
	reloaded, _ = store.GetByID(ctx, composing.ID)
	if reloaded.Status != queue.StatusPrepared {
		t.Fatalf("composing should roll back to prepared, got %s", reloaded.Status)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stale, _ := store.NewJob(ctx, "/decks/stale.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	fresh, _ := store.NewJob(ctx, "/decks/fresh.pptx", "zh-CN-XiaoxiaoNeural", 100, "")

	staleBeat := time.Now().UTC().Add(-time.Hour)
	stale.Status = queue.StatusPreparing
	stale.LastHeartbeat = &staleBeat
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("stale update: %v", err)
	}

	freshBeat := time.Now().UTC()
	fresh.Status = queue.StatusComposing
	fresh.LastHeartbeat = &freshBeat
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("fresh update: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", count)
	}

	reloaded, _ := store.GetByID(ctx, stale.ID)
	if reloaded.Status != queue.StatusPending {
		t.Fatalf("stale job should return to pending, got %s", reloaded.Status)
	}
	if reloaded.LastHeartbeat != nil {
		t.Fatal("stale job heartbeat should be cleared")
	}
	reloaded, _ = store.GetByID(ctx, fresh.ID)
	if reloaded.Status != queue.StatusComposing {
		t.Fatalf("fresh job should stay composing, got %s", reloaded.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, _ := store.NewJob(ctx, "/decks/first.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	second, _ := store.NewJob(ctx, "/decks/second.pptx", "zh-CN-XiaoxiaoNeural", 100, "")

	for _, job := range []*queue.Job{first, second} {
		job.SetFailed("ffmpeg exploded")
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	count, err := store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed by id: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried, got %d", count)
	}
	reloaded, _ := store.GetByID(ctx, first.ID)
	if reloaded.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", reloaded.Status)
	}
	if reloaded.ErrorMessage != "" {
		t.Fatalf("error message should be cleared, got %q", reloaded.ErrorMessage)
	}

	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected remaining failed job retried, got %d", count)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, _ := store.NewJob(ctx, "/decks/deck.pptx", "zh-CN-XiaoxiaoNeural", 100, "")
	job.Status = queue.StatusPreparing
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	reloaded, _ := store.GetByID(ctx, job.ID)
	if reloaded.LastHeartbeat == nil {
		t.Fatal("expected heartbeat timestamp")
	}
	if time.Since(*reloaded.LastHeartbeat) > time.Minute {
		t.Fatalf("heartbeat too old: %v", reloaded.LastHeartbeat)
	}
}
