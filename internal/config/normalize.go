package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeTTS()
	c.normalizeSubtitles()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTools() error {
	// Tool entries may be bare command names, which must not be expanded to
	// absolute paths; only explicit locations go through expansion.
	expand := func(field *string, key string) error {
		value := strings.TrimSpace(*field)
		if value == "" || !strings.ContainsAny(value, "/~\\") {
			*field = value
			return nil
		}
		expanded, err := expandPath(value)
		if err != nil {
			return fmt.Errorf("tools.%s: %w", key, err)
		}
		*field = expanded
		return nil
	}
	if err := expand(&c.Tools.Soffice, "soffice"); err != nil {
		return err
	}
	if err := expand(&c.Tools.Pdftoppm, "pdftoppm"); err != nil {
		return err
	}
	if err := expand(&c.Tools.FFmpeg, "ffmpeg"); err != nil {
		return err
	}
	if err := expand(&c.Tools.FFprobe, "ffprobe"); err != nil {
		return err
	}
	if err := expand(&c.Tools.EdgeTTS, "edge_tts"); err != nil {
		return err
	}
	if err := expand(&c.Tools.Uvx, "uvx"); err != nil {
		return err
	}
	if err := expand(&c.Tools.OpenCC, "opencc"); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeTTS() {
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultVoice
	}
	if c.TTS.RatePercent == 0 {
		c.TTS.RatePercent = defaultRatePercent
	}
	if c.TTS.MaxRetries < 0 {
		c.TTS.MaxRetries = 0
	}
	if c.TTS.RetryDelaySeconds <= 0 {
		c.TTS.RetryDelaySeconds = defaultRetryDelaySeconds
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.WhisperModel = strings.TrimSpace(c.Subtitles.WhisperModel)
	if c.Subtitles.WhisperModel == "" {
		c.Subtitles.WhisperModel = defaultWhisperModel
	}
	c.Subtitles.Language = strings.TrimSpace(c.Subtitles.Language)
	if strings.TrimSpace(c.Subtitles.Style) == "" {
		c.Subtitles.Style = defaultSubtitleStyle
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
