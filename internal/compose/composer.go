// Package compose implements the second pipeline stage: assembling narrated
// segments into the final video, with optional subtitle transcription and
// burn-in, then delivering the result to the output directory.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"slidecast/internal/config"
	"slidecast/internal/deps"
	"slidecast/internal/fileutil"
	"slidecast/internal/logging"
	"slidecast/internal/mux"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/slides"
	"slidecast/internal/stage"
	"slidecast/internal/transcribe"
	"slidecast/internal/voices"
)

const stageName = "compose"

// SegmentBuilder assembles per-slide segments and final containers.
type SegmentBuilder interface {
	BuildSegment(ctx context.Context, imagePath string, duration float64, audioPath, outputPath string) error
	Concat(ctx context.Context, inputs []string, outputPath string) error
	Burn(ctx context.Context, inputVideo, srtPath, style, outputPath string) error
}

// Transcriber produces an SRT file from narration clips.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPaths []string, workDir, outputSRT string) error
}

// Composer manages the video assembly workflow.
type Composer struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	locator     *deps.Locator
	builder     SegmentBuilder
	transcriber Transcriber
}

// NewComposer constructs the compose handler using default dependencies.
func NewComposer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Composer {
	return NewComposerWithDependencies(cfg, store, logger, nil, nil)
}

// NewComposerWithDependencies allows injecting the muxer and transcriber
// (used in tests). Nil values fall back to the real tool-backed components.
func NewComposerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, builder SegmentBuilder, transcriber Transcriber) *Composer {
	return &Composer{
		cfg:         cfg,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "composer"),
		locator:     deps.NewLocator(cfg.Tools),
		builder:     builder,
		transcriber: transcriber,
	}
}

func (c *Composer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, c.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Composing"
	}
	job.ProgressMessage = "Starting composition"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting video composition",
		logging.String("source_path", strings.TrimSpace(job.SourcePath)),
	)
	return nil
}

func (c *Composer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, c.logger)

	records, err := slides.Parse(job.SlideDataJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "load slide records", "Job carries no slide records; re-run preparation", err)
	}
	if job.ScratchDir == "" {
		return services.Wrap(services.ErrValidation, stageName, "check scratch dir", "Job has no scratch directory recorded", nil)
	}

	builder, err := c.segmentBuilder()
	if err != nil {
		return err
	}

	segmentsDir := slides.SegmentsDir(job.ScratchDir)
	segments := make([]string, 0, len(records))
	for i, rec := range records {
		percent := float64(i) / float64(len(records)) * 60
		c.setProgress(ctx, job, fmt.Sprintf("Building segment %d/%d", rec.Number, len(records)), percent)

		segPath := filepath.Join(segmentsDir, fmt.Sprintf("segment_%d.mp4", rec.Number))
		duration := rec.ClipDuration(c.cfg.Video.DefaultSlideDuration)
		audioPath := ""
		if rec.HasUsableAudio() {
			audioPath = rec.AudioPath
		}
		if err := builder.BuildSegment(ctx, rec.ImagePath, duration, audioPath, segPath); err != nil {
			return err
		}
		segments = append(segments, segPath)
	}

	c.setProgress(ctx, job, "Concatenating segments", 65)
	assembled := filepath.Join(job.ScratchDir, "assembled.mp4")
	if err := builder.Concat(ctx, segments, assembled); err != nil {
		return err
	}
	logger.Info("segments concatenated", logging.Int("segment_count", len(segments)))

	finalVideo := c.subtitlePass(ctx, job, records, builder, assembled)

	c.setProgress(ctx, job, "Delivering video", 95)
	outputDir := job.OutputDir
	if outputDir == "" {
		outputDir = c.cfg.Paths.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "create output dir", "Failed to create output directory; set output_dir to a writable location", err)
	}
	outputName := fmt.Sprintf("%s_%s.mp4", slides.SafeStem(job.SourcePath), job.RunToken)
	outputPath := filepath.Join(outputDir, outputName)
	if err := fileutil.MoveFile(finalVideo, outputPath); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "deliver video", "Failed to move final video into output directory", err)
	}
	job.FinalFile = outputPath

	c.cleanupScratch(ctx, job)

	job.SetProgressComplete("Completed", "Video delivered")
	logger.Info("video composition completed",
		logging.String("final_file", outputPath),
	)
	return nil
}

// HealthCheck verifies the external tools the stage shells out to.
func (c *Composer) HealthCheck(ctx context.Context) stage.Health {
	const name = "composer"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(c.cfg.Paths.OutputDir) == "" {
		return stage.Unhealthy(name, "output directory not configured")
	}
	missing := make([]string, 0, 2)
	required := []string{deps.ToolFFmpeg}
	if c.cfg.Subtitles.Enabled {
		required = append(required, deps.ToolUvx)
	}
	for _, tool := range required {
		if _, ok := c.locator.Locate(tool); !ok {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return stage.Unhealthy(name, "missing tools: "+strings.Join(missing, ", "))
	}
	return stage.Healthy(name)
}

// subtitlePass optionally transcribes the narration and burns the result
// into the assembled video. Both steps degrade to the unsubtitled video with
// a job warning; neither can fail the stage.
func (c *Composer) subtitlePass(ctx context.Context, job *queue.Job, records []slides.Record, builder SegmentBuilder, assembled string) string {
	logger := logging.WithContext(ctx, c.logger)
	if !c.cfg.Subtitles.Enabled {
		return assembled
	}

	audioPaths := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.HasUsableAudio() {
			audioPaths = append(audioPaths, rec.AudioPath)
		}
	}
	if !transcribe.HasUsableInput(audioPaths) {
		logger.Info("no narration to transcribe, skipping subtitles")
		return assembled
	}

	transcriber, err := c.audioTranscriber(job)
	if err != nil {
		logging.WarnWithContext(logger, "transcription unavailable, delivering without subtitles", "transcribe_unavailable",
			logging.Error(err),
		)
		job.AppendWarning("subtitles skipped: transcription tool unavailable")
		return assembled
	}

	c.setProgress(ctx, job, "Transcribing narration", 70)
	srtPath := filepath.Join(job.ScratchDir, "subtitles.srt")
	if err := transcriber.Transcribe(ctx, audioPaths, job.ScratchDir, srtPath); err != nil {
		if ctx.Err() != nil {
			return assembled
		}
		logging.WarnWithContext(logger, "transcription failed, delivering without subtitles", "transcribe_failed",
			logging.Error(err),
		)
		job.AppendWarning("subtitles skipped: transcription failed")
		return assembled
	}

	c.setProgress(ctx, job, "Burning subtitles", 85)
	subtitled := filepath.Join(job.ScratchDir, "subtitled.mp4")
	if err := builder.Burn(ctx, assembled, srtPath, c.cfg.Subtitles.Style, subtitled); err != nil {
		if ctx.Err() != nil {
			return assembled
		}
		logging.WarnWithContext(logger, "subtitle burn-in failed, delivering without subtitles", "burn_failed",
			logging.Error(err),
		)
		job.AppendWarning("subtitles skipped: burn-in failed")
		return assembled
	}
	return subtitled
}

// cleanupScratch removes the job's intermediate assets after delivery unless
// configured to keep them for debugging.
func (c *Composer) cleanupScratch(ctx context.Context, job *queue.Job) {
	logger := logging.WithContext(ctx, c.logger)
	if c.cfg.Workflow.KeepScratch {
		logger.Info("keeping scratch directory", logging.String("scratch_dir", job.ScratchDir))
		return
	}
	if job.ScratchDir == "" {
		return
	}
	if err := os.RemoveAll(job.ScratchDir); err != nil {
		logger.Warn("scratch cleanup failed", logging.Error(err))
		return
	}
	job.ScratchDir = ""
}

func (c *Composer) segmentBuilder() (SegmentBuilder, error) {
	if c.builder != nil {
		return c.builder, nil
	}
	ffmpeg, ok := c.locator.Locate(deps.ToolFFmpeg)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, stageName, "locate ffmpeg", "Required tool \"ffmpeg\" not found; install it or set its path in config", nil)
	}
	return mux.New(mux.Config{
		FFmpegBinary: ffmpeg,
		TargetWidth:  c.cfg.Video.TargetWidth,
		TargetFPS:    c.cfg.Video.TargetFPS,
	}, c.logger), nil
}

func (c *Composer) audioTranscriber(job *queue.Job) (Transcriber, error) {
	if c.transcriber != nil {
		return c.transcriber, nil
	}
	uvx, ok := c.locator.Locate(deps.ToolUvx)
	if !ok {
		return nil, fmt.Errorf("uvx not found")
	}
	ffmpeg, ok := c.locator.Locate(deps.ToolFFmpeg)
	if !ok {
		return nil, fmt.Errorf("ffmpeg not found")
	}
	opencc, _ := c.locator.Locate(deps.ToolOpenCC)
	return transcribe.New(transcribe.Config{
		UvxBinary:       uvx,
		FFmpegBinary:    ffmpeg,
		OpenCCBinary:    opencc,
		Model:           c.cfg.Subtitles.WhisperModel,
		Language:        c.transcriptionLanguage(job),
		SimplifyChinese: c.cfg.Subtitles.SimplifyChinese,
	}, c.logger), nil
}

// transcriptionLanguage resolves the language hint passed to the speech
// recognizer: the configured subtitle language when set, otherwise the base
// language of the job's narration voice.
func (c *Composer) transcriptionLanguage(job *queue.Job) string {
	if lang := strings.TrimSpace(c.cfg.Subtitles.Language); lang != "" {
		return lang
	}
	if voice, ok := voices.Default().Get(job.Voice); ok {
		return voice.ASRLanguage()
	}
	return ""
}

func (c *Composer) setProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress("Composing", message, percent)
	if c.store == nil {
		return
	}
	if err := c.store.Update(ctx, job); err != nil {
		logging.WithContext(ctx, c.logger).Debug("progress update failed", logging.Error(err))
	}
}
