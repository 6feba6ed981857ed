package service

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/timmy/insights/internal/config"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

// Downloader opens stored objects. storage.ObjectStorage satisfies it.
type Downloader interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// QualityProcessor scores freshly uploaded datasets. Stored CSV files
// are profiled and scored by completeness; anything else gets a random
// score in the configured range after the configured delay.
// It satisfies store.Processor.
type QualityProcessor struct {
	cfg   config.ProcessingConfig
	files Downloader

	mu  sync.Mutex
	rng *rand.Rand
}

// NewQualityProcessor creates a processor. files may be nil, in which
// case every dataset takes the random path.
func NewQualityProcessor(cfg config.ProcessingConfig, files Downloader, seed uint64) *QualityProcessor {
	return &QualityProcessor{
		cfg:   cfg,
		files: files,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Process waits for the configured delay, then produces an outcome.
// It returns ctx.Err() if cancelled while waiting.
func (p *QualityProcessor) Process(ctx context.Context, ds domain.Dataset) (domain.Outcome, error) {
	if p.cfg.Delay > 0 {
		timer := time.NewTimer(p.cfg.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.Outcome{}, ctx.Err()
		case <-timer.C:
		}
	}

	if p.roll() < p.cfg.FailureRate {
		return domain.Failed("quality checks failed"), nil
	}

	if p.files != nil && strings.HasSuffix(strings.ToLower(ds.StorageKey), ".csv") {
		prof, err := p.profile(ctx, ds.StorageKey)
		if err != nil {
			return domain.Outcome{}, err
		}
		logger.With(logger.Fields{logger.FieldDatasetID: ds.ID, "rows": prof.Rows, "columns": prof.Columns}).
			Debug(ctx, "Dataset profiled")
		return domain.Completed(prof.Completeness()), nil
	}

	return domain.Completed(p.score()), nil
}

func (p *QualityProcessor) profile(ctx context.Context, key string) (Profile, error) {
	rc, err := p.files.Download(ctx, key)
	if err != nil {
		return Profile{}, fmt.Errorf("download %s: %w", key, err)
	}
	defer rc.Close()
	return ProfileCSV(rc)
}

func (p *QualityProcessor) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

func (p *QualityProcessor) score() int {
	lo, hi := p.cfg.MinScore, p.cfg.MaxScore
	if hi < lo {
		lo, hi = hi, lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rng.IntN(hi-lo+1)
}
