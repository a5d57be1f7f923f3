package cli

import (
	"log/slog"

	"github.com/cognitivitydev/Chronal-sub002/pkg/preset"
	"github.com/cognitivitydev/Chronal-sub002/pkg/storage"
)

// OpenPresets opens the configured preset store.
func (c *Config) OpenPresets() (preset.Store, error) {
	slog.Debug("preset store", "driver", c.Presets.Driver, "dir", c.PresetDir())
	return preset.Open(c.Presets.Driver, c.PresetDir())
}

// OpenRenders opens the configured render cache: S3 when a bucket is set,
// the local render directory otherwise.
func (c *Config) OpenRenders() (storage.RenderStore, error) {
	if s3cfg := c.Renders.S3; s3cfg.Bucket != "" {
		slog.Debug("render cache", "backend", "s3", "bucket", s3cfg.Bucket, "prefix", s3cfg.Prefix)
		return storage.NewS3(storage.NewS3Client(s3cfg), s3cfg.Bucket, s3cfg.Prefix), nil
	}
	slog.Debug("render cache", "backend", "local", "dir", c.RenderDir())
	return storage.NewLocal(c.RenderDir())
}
