package config

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/xblk-report/internal/fsutil"
	"github.com/banshee-data/xblk-report/internal/xblk"
)

// Malformed record policies.
const (
	PolicySkip = "skip" // log a warning and continue with the next record
	PolicyFail = "fail" // stop the run with a decode failure
)

// maxFileSize bounds the config file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// DecoderConfig is the JSON configuration of a report run. Fields omitted
// from the file fall back to the defaults returned by the Get* methods, so
// partial configs are safe.
type DecoderConfig struct {
	StrictLegacyMode  *bool    `json:"strict_legacy_mode,omitempty"`
	LegacyScaleMask   *bool    `json:"legacy_scale_mask,omitempty"`
	ShortRecordPolicy *string  `json:"short_record_policy,omitempty"`
	SampleIntervalMs  *float64 `json:"sample_interval_ms,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// DefaultDecoderConfig returns the legacy-compatible configuration.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		StrictLegacyMode:  ptrBool(true),
		LegacyScaleMask:   ptrBool(true),
		ShortRecordPolicy: ptrString(PolicySkip),
	}
}

// LoadDecoderConfig loads a DecoderConfig from a JSON file on fsys.
// The file must have a .json extension and be under the max file size.
func LoadDecoderConfig(fsys fsutil.FileSystem, path string) (*DecoderConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	fileInfo, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseDecoderConfig(data)
}

// ParseDecoderConfig parses and validates JSON config data.
func ParseDecoderConfig(data []byte) (*DecoderConfig, error) {
	cfg := &DecoderConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DecoderConfig) Validate() error {
	if c.ShortRecordPolicy != nil {
		switch *c.ShortRecordPolicy {
		case PolicySkip, PolicyFail:
		default:
			return fmt.Errorf("short_record_policy must be %q or %q, got %q", PolicySkip, PolicyFail, *c.ShortRecordPolicy)
		}
	}
	if c.SampleIntervalMs != nil && !(*c.SampleIntervalMs > 0) {
		return fmt.Errorf("sample_interval_ms must be positive, got %v", *c.SampleIntervalMs)
	}
	return nil
}

// GetStrictLegacyMode returns strict_legacy_mode, default true.
func (c *DecoderConfig) GetStrictLegacyMode() bool {
	if c.StrictLegacyMode == nil {
		return true
	}
	return *c.StrictLegacyMode
}

// GetLegacyScaleMask returns legacy_scale_mask, default true.
func (c *DecoderConfig) GetLegacyScaleMask() bool {
	if c.LegacyScaleMask == nil {
		return true
	}
	return *c.LegacyScaleMask
}

// GetShortRecordPolicy returns short_record_policy, default "skip".
func (c *DecoderConfig) GetShortRecordPolicy() string {
	if c.ShortRecordPolicy == nil || *c.ShortRecordPolicy == "" {
		return PolicySkip
	}
	return *c.ShortRecordPolicy
}

// GetSampleIntervalMs returns sample_interval_ms and whether it was set.
func (c *DecoderConfig) GetSampleIntervalMs() (float64, bool) {
	if c.SampleIntervalMs == nil {
		return 0, false
	}
	return *c.SampleIntervalMs, true
}

// SetStrictLegacyMode overrides strict_legacy_mode.
func (c *DecoderConfig) SetStrictLegacyMode(v bool) { c.StrictLegacyMode = ptrBool(v) }

// SetLegacyScaleMask overrides legacy_scale_mask.
func (c *DecoderConfig) SetLegacyScaleMask(v bool) { c.LegacyScaleMask = ptrBool(v) }

// SetShortRecordPolicy overrides short_record_policy.
func (c *DecoderConfig) SetShortRecordPolicy(v string) { c.ShortRecordPolicy = ptrString(v) }

// SetSampleIntervalMs overrides sample_interval_ms.
func (c *DecoderConfig) SetSampleIntervalMs(v float64) { c.SampleIntervalMs = ptrFloat64(v) }

// DecoderOptions converts the config into decoder options.
func (c *DecoderConfig) DecoderOptions() xblk.Options {
	return xblk.Options{
		StrictLegacy:    c.GetStrictLegacyMode(),
		LegacyScaleMask: c.GetLegacyScaleMask(),
	}
}
