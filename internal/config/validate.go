package config

import (
	"errors"
	"fmt"
)

// Speech rate bounds accepted by edge-tts, shared with submission validation.
const (
	MinRatePercent = 20
	MaxRatePercent = 300
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.RatePercent < MinRatePercent || c.TTS.RatePercent > MaxRatePercent {
		return fmt.Errorf("tts.rate_percent must be between %d and %d, got %d", MinRatePercent, MaxRatePercent, c.TTS.RatePercent)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.ImageExportDPI < 30 || c.Render.ImageExportDPI > 1200 {
		return fmt.Errorf("render.image_export_dpi must be between 30 and 1200, got %d", c.Render.ImageExportDPI)
	}
	if c.Render.ConvertTimeout <= 0 {
		return errors.New("render.convert_timeout must be positive")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.TargetWidth <= 0 {
		return errors.New("video.target_width must be positive")
	}
	if c.Video.TargetWidth%2 != 0 {
		return fmt.Errorf("video.target_width must be even for yuv420p output, got %d", c.Video.TargetWidth)
	}
	if c.Video.TargetFPS <= 0 {
		return errors.New("video.target_fps must be positive")
	}
	if c.Video.DefaultSlideDuration <= 0 {
		return errors.New("video.default_slide_duration must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
}
