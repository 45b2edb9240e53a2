// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

var validTargetKinds = map[string]bool{
	"dataset": true, "screen": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format: must be text or json; got %q", c.Log.Format))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, "log: rotation limits must not be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path: required")
	}

	if c.Storage.URL == "" {
		errs = append(errs, "storage.url: required")
	}
	if c.Storage.Compression != "" {
		if ok, _ := zstd.EncoderLevelFromString(c.Storage.Compression); !ok {
			errs = append(errs, fmt.Sprintf("storage.compression: must be one of fastest, default, better, best; got %q", c.Storage.Compression))
		}
	}

	if c.Import.Digest != "" {
		if _, ok := digests[strings.ToLower(c.Import.Digest)]; !ok {
			errs = append(errs, fmt.Sprintf("import.digest: must be one of sha1, sha256, sha512; got %q", c.Import.Digest))
		}
	}
	target := c.Import.Target
	if !validTargetKinds[strings.ToLower(target.Kind)] {
		errs = append(errs, fmt.Sprintf("import.target.kind: must be dataset or screen; got %q", target.Kind))
	}
	if target.Kind != "" && target.ID == 0 && target.Name == "" {
		errs = append(errs, "import.target: id or name required when kind is set")
	}
	if target.Kind == "" && (target.ID != 0 || target.Name != "") {
		errs = append(errs, "import.target.kind: required when id or name is set")
	}
	if target.ID < 0 {
		errs = append(errs, fmt.Sprintf("import.target.id: must be positive, got %d", target.ID))
	}

	if c.Events.RetentionDays < 0 {
		errs = append(errs, fmt.Sprintf("events.retention_days: must not be negative, got %d", c.Events.RetentionDays))
	}

	if c.Report.Enabled && c.Report.URL == "" {
		errs = append(errs, "report.url: required when report is enabled")
	}
	if c.Report.Timeout < 0 {
		errs = append(errs, "report.timeout: must not be negative")
	}

	if c.Processing.Workers < 0 {
		errs = append(errs, fmt.Sprintf("processing.workers: must be positive, got %d", c.Processing.Workers))
	}
	if c.Processing.ThumbnailSize < 0 {
		errs = append(errs, fmt.Sprintf("processing.thumbnail_size: must be positive, got %d", c.Processing.ThumbnailSize))
	}

	return errs
}
