package daemon_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidecast/internal/api"
	"slidecast/internal/config"
	"slidecast/internal/daemon"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/stage"
	"slidecast/internal/testsupport"
	"slidecast/internal/workflow"
)

type stubHandler struct {
	name string
	exec func(ctx context.Context, job *queue.Job) error
}

func (s *stubHandler) Prepare(ctx context.Context, job *queue.Job) error { return nil }

func (s *stubHandler) Execute(ctx context.Context, job *queue.Job) error {
	if s.exec != nil {
		return s.exec(ctx, job)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func startDaemon(t *testing.T, cfg *config.Config, preparer stage.Handler) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, logging.NewNop())
	manager.ConfigureStages(workflow.StageSet{Preparer: preparer})

	d, err := daemon.New(cfg, store, logging.NewNop(), manager)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func writeDeck(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "deck.pptx")
	testsupport.WriteFile(t, path, 1024)
	return path
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg, &stubHandler{name: "preparer"})

	store2 := testsupport.MustOpenStore(t, cfg)
	manager2 := workflow.NewManager(cfg, store2, logging.NewNop())
	manager2.ConfigureStages(workflow.StageSet{Preparer: &stubHandler{name: "preparer"}})
	second, err := daemon.New(cfg, store2, logging.NewNop(), manager2)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon must fail to acquire the lock")
	}
}

func TestAPISubmitAndQuery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg, &stubHandler{name: "preparer"})
	client := api.NewClient(d.APIAddr())
	ctx := context.Background()

	deck := writeDeck(t, cfg)
	job, err := client.Submit(ctx, api.SubmitRequest{SourcePath: deck})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("submitted job has no id")
	}
	if job.Voice != cfg.TTS.Voice {
		t.Fatalf("expected default voice %s, got %s", cfg.TTS.Voice, job.Voice)
	}

	fetched, err := client.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.SourcePath != deck {
		t.Fatalf("expected source %s, got %s", deck, fetched.SourcePath)
	}

	jobs, err := client.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("status must report external dependencies")
	}
	if len(status.Workflow.StageHealth) == 0 {
		t.Fatal("status must report stage health")
	}

	catalog, err := client.Voices(ctx)
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(catalog) == 0 {
		t.Fatal("voice catalog must not be empty")
	}
	found := false
	for _, voice := range catalog {
		if voice.ID == cfg.TTS.Voice {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("catalog missing default voice %s", cfg.TTS.Voice)
	}
}

func TestSubmitHonorsPerJobOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg, &stubHandler{name: "preparer"})
	client := api.NewClient(d.APIAddr())
	ctx := context.Background()

	deck := writeDeck(t, cfg)
	exports := filepath.Join(testsupport.BaseDir(cfg), "exports")

	job, err := client.Submit(ctx, api.SubmitRequest{SourcePath: deck, OutputDir: exports})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.OutputDir != exports {
		t.Fatalf("expected per-job output dir %s, got %q", exports, job.OutputDir)
	}

	plain, err := client.Submit(ctx, api.SubmitRequest{SourcePath: deck})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if plain.OutputDir != "" {
		t.Fatalf("default submission must leave output dir empty, got %q", plain.OutputDir)
	}
}

func TestAPIRejectsBadSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg, &stubHandler{name: "preparer"})
	client := api.NewClient(d.APIAddr())
	ctx := context.Background()

	deck := writeDeck(t, cfg)

	if _, err := client.Submit(ctx, api.SubmitRequest{SourcePath: deck, Voice: "not-a-voice"}); err == nil {
		t.Fatal("unknown voice must be rejected")
	}
	if _, err := client.Submit(ctx, api.SubmitRequest{SourcePath: filepath.Join(testsupport.BaseDir(cfg), "missing.pptx")}); err == nil {
		t.Fatal("missing source must be rejected")
	}
	notes := filepath.Join(testsupport.BaseDir(cfg), "notes.txt")
	testsupport.WriteFile(t, notes, 64)
	if _, err := client.Submit(ctx, api.SubmitRequest{SourcePath: notes}); err == nil {
		t.Fatal("unsupported extension must be rejected")
	}
	if _, err := client.Submit(ctx, api.SubmitRequest{SourcePath: deck, RatePercent: 500}); err == nil {
		t.Fatal("out-of-range rate must be rejected")
	}
}

func TestAPIRetryFailedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	failing := &stubHandler{name: "preparer", exec: func(ctx context.Context, job *queue.Job) error {
		return services.Wrap(services.ErrExternalTool, "prepare", "render", "conversion failed", nil)
	}}
	d := startDaemon(t, cfg, failing)
	client := api.NewClient(d.APIAddr())
	ctx := context.Background()

	deck := writeDeck(t, cfg)
	job, err := client.Submit(ctx, api.SubmitRequest{SourcePath: deck})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		fetched, err := client.GetJob(ctx, job.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if fetched.Status == string(queue.StatusFailed) {
			if !strings.Contains(fetched.ErrorMessage, "conversion failed") {
				t.Fatalf("expected failure detail, got %q", fetched.ErrorMessage)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never failed, status %s", fetched.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}

	count, err := client.RetryFailed(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried job, got %d", count)
	}
}

func TestAPIClearScopes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startDaemon(t, cfg, &stubHandler{name: "preparer"})
	client := api.NewClient(d.APIAddr())
	ctx := context.Background()

	count, err := client.ClearQueue(ctx, "completed")
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if count != 0 {
		t.Fatalf("nothing completed yet, got %d", count)
	}
	if _, err := client.ClearQueue(ctx, "bogus"); err == nil {
		t.Fatal("unknown scope must be rejected")
	}
}
