package syncer

import (
	"sync/atomic"
	"time"

	"mediacat/internal/catalog"
	"mediacat/internal/config"
	"mediacat/internal/hash"
	"mediacat/internal/imagemeta"
	"mediacat/internal/logging"
	"mediacat/internal/metrics"
	"mediacat/internal/pipeline"
	"mediacat/internal/scanner"
	"mediacat/internal/thumbs"
)

// Stats summarizes what a sync run changed.
type Stats struct {
	DirsAdded   int
	DirsRemoved int
	DirsMoved   int

	FilesAdded    int
	FilesRemoved  int
	FilesModified int

	DimensionsBackfilled int
	OrientationTagged    int

	FilesHashed int
	HashErrors  int

	PerceptualHashed int
	PerceptualErrors int
}

// Options selects the sync mode and the optional post-processing passes.
type Options struct {
	// Incremental restricts the file scan to directories that are new or
	// whose mtime changed. Move detection only happens in full mode.
	Incremental bool

	// Hash computes missing content hashes after reconciliation.
	Hash bool
	// Orientation tags untagged images as landscape or portrait.
	Orientation bool
	// Perceptual computes missing perceptual hashes for images.
	Perceptual bool

	// Workers overrides the compute parallelism. Zero uses the configured
	// or derived default.
	Workers int

	// Progress, when set, receives per-pass progress and is checked for
	// cancellation between passes.
	Progress *pipeline.Progress
}

// Syncer reconciles the catalog with the filesystem and runs the
// post-processing passes.
type Syncer struct {
	cat    *catalog.Catalog
	scan   *scanner.Scanner
	thumbs *thumbs.Resolver
	cfg    *config.Config
}

// New creates a Syncer. The thumbnail resolver may be nil; thumbnails are
// then neither relocated on moves nor used as hashing previews.
func New(cat *catalog.Catalog, scan *scanner.Scanner, resolver *thumbs.Resolver, cfg *config.Config) *Syncer {
	if cfg == nil {
		cfg = config.Default(scan.Root())
	}
	return &Syncer{cat: cat, scan: scan, thumbs: resolver, cfg: cfg}
}

// Run reconciles the catalog with the filesystem, then runs the dimension
// backfill and any requested passes. Reconciliation is a single transaction;
// each pipeline pass batches its own.
func (s *Syncer) Run(opts Options) (*Stats, error) {
	mode := "full"
	if opts.Incremental {
		mode = "incremental"
	}
	start := time.Now()

	stats := &Stats{}
	var err error
	if opts.Incremental {
		err = s.reconcileIncremental(stats)
	} else {
		err = s.reconcileFull(stats)
	}
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	metrics.SyncFilesAdded.Add(float64(stats.FilesAdded))
	metrics.SyncFilesRemoved.Add(float64(stats.FilesRemoved))
	metrics.SyncDirectoriesMoved.Add(float64(stats.DirsMoved))

	logging.Info("Reconciled %s: +%d/-%d dirs (%d moved), +%d/-%d/~%d files",
		s.scan.Root(), stats.DirsAdded, stats.DirsRemoved, stats.DirsMoved,
		stats.FilesAdded, stats.FilesRemoved, stats.FilesModified)

	passes := []struct {
		name    string
		enabled bool
		run     func(*Stats, Options) error
	}{
		{"dimensions", true, s.backfillDimensions},
		{"orientation", opts.Orientation, s.tagOrientation},
		{"hash", opts.Hash, s.hashContents},
		{"perceptual", opts.Perceptual, s.hashPerceptual},
	}
	for _, pass := range passes {
		if !pass.enabled {
			continue
		}
		if opts.Progress != nil && opts.Progress.Cancelled() {
			break
		}
		if err := pass.run(stats, opts); err != nil {
			metrics.SyncRunsTotal.WithLabelValues(mode, "error").Inc()
			return nil, err
		}
	}

	metrics.SyncRunsTotal.WithLabelValues(mode, "success").Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	return stats, nil
}

type dims struct {
	w, h int
}

func (s *Syncer) backfillDimensions(stats *Stats, opts Options) error {
	refs, err := s.cat.FilesNeedingDimensions()
	if err != nil {
		return err
	}

	cfg := pipeline.Config{Name: "dimensions", Workers: s.workerCount(opts), BatchSize: s.cfg.Batch.Dimension}
	written, err := pipeline.Run(s.cat, s.toItems(refs), cfg, opts.Progress,
		func(it pipeline.Item) (dims, bool) {
			w, h, err := imagemeta.DisplayDimensions(it.Path)
			if err != nil {
				logging.Debug("Could not read dimensions of %s: %v", it.Path, err)
				return dims{}, false
			}
			return dims{w, h}, true
		},
		func(it pipeline.Item, d dims) error {
			return s.cat.SetFileDimensions(it.ID, d.w, d.h)
		})
	stats.DimensionsBackfilled = written
	return err
}

func (s *Syncer) tagOrientation(stats *Stats, opts Options) error {
	refs, err := s.cat.FilesNeedingOrientation()
	if err != nil {
		return err
	}

	cfg := pipeline.Config{Name: "orientation", Workers: s.workerCount(opts), BatchSize: s.cfg.Batch.Orientation}
	written, err := pipeline.Run(s.cat, s.toItems(refs), cfg, opts.Progress,
		func(it pipeline.Item) (string, bool) {
			tag, err := imagemeta.OrientationTag(it.Path)
			if err != nil {
				logging.Debug("Could not classify orientation of %s: %v", it.Path, err)
				return "", false
			}
			// Square images get no tag and are examined again next pass.
			return tag, tag != ""
		},
		func(it pipeline.Item, tag string) error {
			return s.cat.AddFileTag(it.ID, tag)
		})
	stats.OrientationTagged = written
	return err
}

func (s *Syncer) hashContents(stats *Stats, opts Options) error {
	refs, err := s.cat.FilesNeedingHash()
	if err != nil {
		return err
	}

	var failures atomic.Int64
	cfg := pipeline.Config{Name: "hash", Workers: s.workerCount(opts), BatchSize: s.cfg.Batch.Hash}
	written, err := pipeline.Run(s.cat, s.toItems(refs), cfg, opts.Progress,
		func(it pipeline.Item) (string, bool) {
			h, err := hash.File(it.Path)
			if err != nil {
				logging.Warn("Could not hash %s: %v", it.Path, err)
				metrics.PipelineItemErrors.WithLabelValues("hash").Inc()
				failures.Add(1)
				return "", false
			}
			return h, true
		},
		func(it pipeline.Item, h string) error {
			return s.cat.SetFileHash(it.ID, h)
		})
	stats.FilesHashed = written
	stats.HashErrors = int(failures.Load())
	return err
}

func (s *Syncer) hashPerceptual(stats *Stats, opts Options) error {
	refs, err := s.cat.FilesNeedingPerceptualHash()
	if err != nil {
		return err
	}

	var previews hash.PreviewSource
	if s.thumbs != nil {
		previews = s.thumbs
	}

	var failures atomic.Int64
	cfg := pipeline.Config{Name: "perceptual", Workers: s.workerCount(opts), BatchSize: s.cfg.Batch.Dimension}
	written, err := pipeline.Run(s.cat, s.toItems(refs), cfg, opts.Progress,
		func(it pipeline.Item) (uint64, bool) {
			h, err := hash.PerceptualFile(it.Path, previews)
			if err != nil {
				logging.Debug("Could not perceptually hash %s: %v", it.Path, err)
				metrics.PipelineItemErrors.WithLabelValues("perceptual").Inc()
				failures.Add(1)
				return 0, false
			}
			return h, true
		},
		func(it pipeline.Item, h uint64) error {
			return s.cat.SetFilePerceptualHash(it.ID, h)
		})
	stats.PerceptualHashed = written
	stats.PerceptualErrors = int(failures.Load())
	return err
}

func (s *Syncer) workerCount(opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return s.cfg.Workers
}

// toItems converts catalog refs to pipeline items with absolute paths.
func (s *Syncer) toItems(refs []catalog.FileRef) []pipeline.Item {
	items := make([]pipeline.Item, len(refs))
	for i, r := range refs {
		items[i] = pipeline.Item{ID: r.ID, Path: s.scan.Abs(r.Path)}
	}
	return items
}
