// Package prepare implements the first pipeline stage: rendering the deck to
// slide images, extracting speaker notes, and synthesizing narration clips.
package prepare

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/deps"
	"slidecast/internal/logging"
	"slidecast/internal/media/ffprobe"
	"slidecast/internal/notes"
	"slidecast/internal/queue"
	"slidecast/internal/render"
	"slidecast/internal/services"
	"slidecast/internal/slides"
	"slidecast/internal/stage"
	"slidecast/internal/tts"
)

const stageName = "prepare"

// probeTimeout bounds each ffprobe run; a hung probe must not stall the stage.
const probeTimeout = 15 * time.Second

// SlideRenderer renders a deck into ordered slide images.
type SlideRenderer interface {
	Render(ctx context.Context, documentPath, outputDir string) ([]string, error)
}

// Narrator synthesizes one narration clip at the job's requested speech rate.
type Narrator interface {
	Synthesize(ctx context.Context, voiceID, text string, ratePercent int, outputPath string) error
}

// Preparer manages the deck preparation workflow.
type Preparer struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	locator *deps.Locator

	renderer     SlideRenderer
	narrator     Narrator
	extractNotes func(documentPath string) ([]string, error)
	probeAudio   func(ctx context.Context, path string) (float64, error)
}

// NewPreparer constructs the prepare handler using default dependencies.
func NewPreparer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Preparer {
	return NewPreparerWithDependencies(cfg, store, logger, nil, nil)
}

// NewPreparerWithDependencies allows injecting the renderer and narrator
// (used in tests). Nil values fall back to the real tool-backed components.
func NewPreparerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, renderer SlideRenderer, narrator Narrator) *Preparer {
	p := &Preparer{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "preparer"),
		locator:  deps.NewLocator(cfg.Tools),
		renderer: renderer,
		narrator: narrator,
	}
	p.extractNotes = notes.Extract
	p.probeAudio = p.ffprobeDuration
	return p
}

func (p *Preparer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Preparing"
	}
	job.ProgressMessage = "Starting preparation"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting deck preparation",
		logging.String("source_path", strings.TrimSpace(job.SourcePath)),
		logging.String("voice", job.Voice),
	)
	return nil
}

func (p *Preparer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)

	if _, err := os.Stat(job.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, stageName, "check source", "Source document is not readable", err)
	}

	renderer, err := p.slideRenderer()
	if err != nil {
		return err
	}
	narrator, err := p.clipNarrator()
	if err != nil {
		return err
	}
	if p.narrator == nil {
		// Only the default probe shells out to ffprobe.
		if _, ok := p.locator.Locate(deps.ToolFFprobe); !ok {
			return missingTool(deps.ToolFFprobe)
		}
	}

	scratchDir := filepath.Join(p.cfg.Paths.StagingDir, slides.ScratchDirName(job.ID, job.RunToken, job.SourcePath))
	for _, dir := range []string{slides.ImagesDir(scratchDir), slides.AudioDir(scratchDir), slides.SegmentsDir(scratchDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, stageName, "create scratch dir", "Failed to create scratch directory; set staging_dir to a writable location", err)
		}
	}
	job.ScratchDir = scratchDir

	p.setProgress(ctx, job, "Rendering slides", 5)
	images, err := renderer.Render(ctx, job.SourcePath, slides.ImagesDir(scratchDir))
	if err != nil {
		return err
	}
	logger.Info("slides rendered", logging.Int("slide_count", len(images)))

	noteTexts, err := p.speakerNotes(ctx, len(images), job.SourcePath)
	if err != nil {
		return err
	}
	records, err := slides.Align(images, noteTexts)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "align slides", "Deck produced no usable slides", err)
	}

	narrated := 0
	for i := range records {
		rec := &records[i]
		percent := 10 + float64(i)/float64(len(records))*85
		p.setProgress(ctx, job, fmt.Sprintf("Synthesizing narration %d/%d", rec.Number, len(records)), percent)

		text := strings.TrimSpace(rec.Notes)
		if text == "" {
			logger.Debug("slide has no notes, will use default duration", logging.Int(logging.FieldSlide, rec.Number))
			continue
		}
		clipPath := filepath.Join(slides.AudioDir(scratchDir), fmt.Sprintf("slide_%d.mp3", rec.Number))
		if err := narrator.Synthesize(ctx, job.Voice, text, job.RatePercent, clipPath); err != nil {
			if ctx.Err() != nil {
				return err
			}
			logging.WarnWithContext(logger, "narration synthesis failed, slide will be silent", "tts_failed",
				logging.Int(logging.FieldSlide, rec.Number),
				logging.Error(err),
			)
			job.AppendWarning(fmt.Sprintf("slide %d: narration synthesis failed", rec.Number))
			continue
		}
		duration, err := p.probeAudio(ctx, clipPath)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logging.WarnWithContext(logger, "could not measure narration clip, slide will be silent", "probe_failed",
				logging.Int(logging.FieldSlide, rec.Number),
				logging.Error(err),
			)
			job.AppendWarning(fmt.Sprintf("slide %d: narration clip unreadable", rec.Number))
			continue
		}
		rec.AudioPath = clipPath
		rec.AudioDuration = duration
		if rec.HasUsableAudio() {
			narrated++
		}
	}

	data, err := slides.Marshal(records)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "persist slide records", "Failed to serialize slide records", err)
	}
	job.SlideDataJSON = data
	job.SetProgressComplete("Prepared", "Slides and narration ready")
	logger.Info("deck preparation completed",
		logging.Int("slide_count", len(records)),
		logging.Int("narrated_slides", narrated),
	)
	return nil
}

// HealthCheck verifies the external tools the stage shells out to.
func (p *Preparer) HealthCheck(ctx context.Context) stage.Health {
	const name = "preparer"
	if p.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(p.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	missing := make([]string, 0, 4)
	for _, tool := range []string{deps.ToolSoffice, deps.ToolPdftoppm, deps.ToolEdgeTTS, deps.ToolFFprobe} {
		if _, ok := p.locator.Locate(tool); !ok {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy(name, "missing tools: "+strings.Join(missing, ", "))
	}
	return stage.Healthy(name)
}

// speakerNotes extracts per-slide notes from the source document. A document
// whose notes cannot be parsed at all leaves nothing to narrate, so that
// fails the stage; a count mismatch against the rendered images is legal and
// resolved later by truncating to the shorter list.
func (p *Preparer) speakerNotes(ctx context.Context, slideCount int, sourcePath string) ([]string, error) {
	texts, err := p.extractNotes(sourcePath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "extract notes",
			"Speaker notes could not be extracted from the document", err)
	}
	if len(texts) != slideCount {
		logging.WithContext(ctx, p.logger).Warn("note count differs from rendered slide count",
			logging.Int("notes", len(texts)),
			logging.Int("slides", slideCount),
		)
	}
	return texts, nil
}

func (p *Preparer) slideRenderer() (SlideRenderer, error) {
	if p.renderer != nil {
		return p.renderer, nil
	}
	soffice, ok := p.locator.Locate(deps.ToolSoffice)
	if !ok {
		return nil, missingTool(deps.ToolSoffice)
	}
	pdftoppm, ok := p.locator.Locate(deps.ToolPdftoppm)
	if !ok {
		return nil, missingTool(deps.ToolPdftoppm)
	}
	return render.New(render.Config{
		SofficeBinary:  soffice,
		PdftoppmBinary: pdftoppm,
		DPI:            p.cfg.Render.ImageExportDPI,
		ConvertTimeout: time.Duration(p.cfg.Render.ConvertTimeout) * time.Second,
	}, p.logger), nil
}

func (p *Preparer) clipNarrator() (Narrator, error) {
	if p.narrator != nil {
		return p.narrator, nil
	}
	edgeTTS, ok := p.locator.Locate(deps.ToolEdgeTTS)
	if !ok {
		return nil, missingTool(deps.ToolEdgeTTS)
	}
	return tts.New(tts.Config{
		Binary:      edgeTTS,
		RatePercent: p.cfg.TTS.RatePercent,
		MaxRetries:  p.cfg.TTS.MaxRetries,
		RetryDelay:  time.Duration(p.cfg.TTS.RetryDelaySeconds * float64(time.Second)),
	}, nil, p.logger), nil
}

func (p *Preparer) ffprobeDuration(ctx context.Context, path string) (float64, error) {
	binary, ok := p.locator.Locate(deps.ToolFFprobe)
	if !ok {
		return 0, missingTool(deps.ToolFFprobe)
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	result, err := ffprobe.Inspect(probeCtx, binary, path)
	if err != nil {
		return 0, err
	}
	return result.AudioDurationSeconds(), nil
}

// setProgress persists intermediate progress so the CLI can show per-slide
// movement during long synthesis runs. Persistence failures are not fatal.
func (p *Preparer) setProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress("Preparing", message, percent)
	if p.store == nil {
		return
	}
	if err := p.store.Update(ctx, job); err != nil {
		logging.WithContext(ctx, p.logger).Debug("progress update failed", logging.Error(err))
	}
}

func missingTool(tool string) error {
	return services.Wrap(services.ErrNotFound, stageName, "locate "+tool, fmt.Sprintf("Required tool %q not found; install it or set its path in config", tool), nil)
}
