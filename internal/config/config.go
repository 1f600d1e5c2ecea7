/**
 * Configuration for the Aadhaar extraction worker
 *
 * Loads configuration from environment variables (AADHAAR_* prefix) with
 * sensible defaults for a local Tesseract installation.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds worker configuration
type Config struct {
	// Tesseract configuration
	TesseractPrefix  string // TESSDATA_PREFIX override, empty uses system default
	DefaultLanguage  string // traineddata used when the hint cannot be honored
	PageSegMode      int    // Tesseract page segmentation mode
	RecognitionLimit int    // max concurrent recognitions (1 serializes access)

	// Pipeline configuration
	RecognitionTimeout time.Duration
	MaxImageBytes      int64
	EnhanceByDefault   bool

	// ID validation
	ChecksumEnabled bool

	// Environment
	Environment string
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AADHAAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tesseract_prefix", "")
	v.SetDefault("default_language", "eng")
	v.SetDefault("page_seg_mode", 3)
	v.SetDefault("recognition_limit", 4)
	v.SetDefault("recognition_timeout", "30s")
	v.SetDefault("max_image_bytes", 5*1024*1024) // 5MB, matches upload limit
	v.SetDefault("enhance_by_default", false)
	v.SetDefault("checksum_enabled", true)
	v.SetDefault("environment", "development")

	cfg := &Config{
		TesseractPrefix:    v.GetString("tesseract_prefix"),
		DefaultLanguage:    v.GetString("default_language"),
		PageSegMode:        v.GetInt("page_seg_mode"),
		RecognitionLimit:   v.GetInt("recognition_limit"),
		RecognitionTimeout: v.GetDuration("recognition_timeout"),
		MaxImageBytes:      v.GetInt64("max_image_bytes"),
		EnhanceByDefault:   v.GetBool("enhance_by_default"),
		ChecksumEnabled:    v.GetBool("checksum_enabled"),
		Environment:        v.GetString("environment"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.DefaultLanguage == "" {
		return fmt.Errorf("AADHAAR_DEFAULT_LANGUAGE is required")
	}

	if c.PageSegMode < 0 || c.PageSegMode > 13 {
		return fmt.Errorf("AADHAAR_PAGE_SEG_MODE must be between 0 and 13, got %d", c.PageSegMode)
	}

	if c.RecognitionLimit < 1 || c.RecognitionLimit > 64 {
		return fmt.Errorf("AADHAAR_RECOGNITION_LIMIT must be between 1 and 64, got %d", c.RecognitionLimit)
	}

	if c.RecognitionTimeout < time.Second {
		return fmt.Errorf("AADHAAR_RECOGNITION_TIMEOUT must be at least 1s, got %v", c.RecognitionTimeout)
	}

	if c.MaxImageBytes < 1024 || c.MaxImageBytes > 64*1024*1024 { // 1KB to 64MB
		return fmt.Errorf("AADHAAR_MAX_IMAGE_BYTES must be between 1KB and 64MB, got %d", c.MaxImageBytes)
	}

	return nil
}
