package store

import (
	"time"

	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

// Option configures a Store.
type Option func(*Store)

// WithFetcher sets the source used by Load.
func WithFetcher(f Fetcher) Option {
	return func(s *Store) { s.fetcher = f }
}

// WithUploader sets the collaborator that persists uploaded bytes.
// Without one, Upload only records metadata.
func WithUploader(u Uploader) Option {
	return func(s *Store) { s.uploader = u }
}

// WithProcessor sets the collaborator run after each upload.
// Without one, uploads stay pending until CompleteProcessing is called.
func WithProcessor(p Processor) Option {
	return func(s *Store) { s.processor = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides uuid based ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithTagger overrides how tags are derived for an upload.
func WithTagger(tag func(domain.FileMeta) []string) Option {
	return func(s *Store) { s.tagger = tag }
}

// WithLogger sets the logger used for store activity.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// DefaultTags keeps the tags supplied with the file, or falls back to "uploaded".
func DefaultTags(meta domain.FileMeta) []string {
	if tags := domain.NormalizeTags(meta.Tags); len(tags) > 0 {
		return tags
	}
	return []string{"uploaded"}
}
