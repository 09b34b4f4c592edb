package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Filename is the name of the per-library configuration file, looked up
// relative to the library root.
const Filename = ".mediacat.toml"

// Default batch sizes for the post-processing passes. Hashing and dimension
// probes touch full file contents, so their transactions stay small;
// orientation tagging only reads headers and can batch much larger.
const (
	DefaultHashBatchSize        = 1000
	DefaultDimensionBatchSize   = 1000
	DefaultOrientationBatchSize = 5000
)

// Config holds the per-library settings.
type Config struct {
	// Workers is the number of parallel workers for compute passes.
	// Zero means derive from the available CPUs.
	Workers int `toml:"workers"`

	// ThumbnailDir is the directory for cached thumbnails. Empty means
	// use the platform cache directory.
	ThumbnailDir string `toml:"thumbnail_dir"`

	Batch BatchConfig `toml:"batch"`
}

// BatchConfig sets the transaction batch sizes for post-processing passes.
type BatchConfig struct {
	Hash        int `toml:"hash"`
	Dimension   int `toml:"dimension"`
	Orientation int `toml:"orientation"`
}

// Default returns a Config populated with default values for the given
// library root.
func Default(root string) *Config {
	return &Config{
		ThumbnailDir: defaultThumbnailDir(root),
		Batch: BatchConfig{
			Hash:        DefaultHashBatchSize,
			Dimension:   DefaultDimensionBatchSize,
			Orientation: DefaultOrientationBatchSize,
		},
	}
}

// Load reads the configuration file from the library root. A missing file is
// not an error; defaults are returned. Unset fields fall back to defaults.
func Load(root string) (*Config, error) {
	cfg := Default(root)

	path := filepath.Join(root, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%s: workers must not be negative", path)
	}
	if cfg.ThumbnailDir == "" {
		cfg.ThumbnailDir = defaultThumbnailDir(root)
	}
	if cfg.Batch.Hash <= 0 {
		cfg.Batch.Hash = DefaultHashBatchSize
	}
	if cfg.Batch.Dimension <= 0 {
		cfg.Batch.Dimension = DefaultDimensionBatchSize
	}
	if cfg.Batch.Orientation <= 0 {
		cfg.Batch.Orientation = DefaultOrientationBatchSize
	}

	return cfg, nil
}

func defaultThumbnailDir(root string) string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mediacat", "thumbs")
	}
	return filepath.Join(root, ".mediacat-thumbs")
}
