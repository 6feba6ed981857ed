// Package store owns the ordered dataset sequence and publishes a
// snapshot of it after every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
)

// Fetcher supplies the full dataset sequence for Load.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]domain.Dataset, error)
}

// Uploader persists the bytes of an uploaded file.
type Uploader interface {
	Store(ctx context.Context, meta domain.FileMeta) (domain.UploadReceipt, error)
}

// Remover is implemented by uploaders that can delete what Store wrote.
// The store uses it for files left behind by a rejected upload and for
// files of deleted datasets.
type Remover interface {
	Remove(ctx context.Context, key string) error
}

// removeTimeout bounds cleanup calls made without a caller context.
const removeTimeout = 30 * time.Second

// Processor produces the outcome for a freshly uploaded dataset.
// It must return promptly once ctx is cancelled.
type Processor interface {
	Process(ctx context.Context, ds domain.Dataset) (domain.Outcome, error)
}

var errClosed = errors.New("store is closed")

type run struct {
	cancel context.CancelFunc
}

// Store is the single owner of the dataset sequence.
//
// All reads and writes of the sequence happen under mu. A mutation
// commits, then takes notifyMu before releasing mu, so events reach
// observers in commit order without holding mu during callbacks.
type Store struct {
	mu       sync.Mutex
	datasets []domain.Dataset
	version  uint64
	runs     map[string]*run
	closed   bool

	notifyMu  sync.Mutex
	observers hub

	baseCtx    context.Context
	cancelBase context.CancelFunc
	wg         sync.WaitGroup

	fetcher   Fetcher
	uploader  Uploader
	processor Processor
	now       func() time.Time
	newID     func() string
	tagger    func(domain.FileMeta) []string
	log       *logger.Logger
}

// New creates an empty store.
func New(opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		datasets:   []domain.Dataset{},
		runs:       make(map[string]*run),
		baseCtx:    ctx,
		cancelBase: cancel,
		now:        time.Now,
		newID:      uuid.NewString,
		tagger:     DefaultTags,
		log:        logger.GetDefault().WithField(logger.FieldComponent, "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers obs for every future event.
func (s *Store) Subscribe(obs Observer) *Subscription {
	return s.observers.add(obs)
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	return s.observers.len()
}

// Load replaces the sequence with the fetcher's result. On failure the
// current sequence is kept.
func (s *Store) Load(ctx context.Context) error {
	if s.fetcher == nil {
		return domain.NewError(domain.KindFetch, OpLoad, "", errors.New("no fetcher configured"))
	}

	start := time.Now()
	fetched, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		return domain.NewError(domain.KindFetch, OpLoad, "", err)
	}
	if err := validateSequence(fetched); err != nil {
		return domain.NewError(domain.KindFetch, OpLoad, "", err)
	}
	fresh := domain.CloneAll(fetched)

	s.mu.Lock()
	present := make(map[string]struct{}, len(fresh))
	for _, ds := range fresh {
		present[ds.ID] = struct{}{}
	}
	for id := range s.runs {
		if _, ok := present[id]; !ok {
			s.cancelRunLocked(id)
		}
	}
	s.datasets = fresh
	ev := s.commitLocked(OpLoad, "")
	s.publishAndUnlock(ev)

	logger.With(logger.Fields{logger.FieldComponent: "store"}).
		WithCount(len(fresh)).
		WithDuration(start).
		Info(ctx, "Datasets loaded")
	return nil
}

// Upload stores the file, prepends a pending dataset and returns its id.
// When a Processor is configured, processing starts in the background.
func (s *Store) Upload(ctx context.Context, meta domain.FileMeta) (string, error) {
	if err := meta.Validate(); err != nil {
		return "", domain.NewError(domain.KindValidation, OpUpload, "", err)
	}

	if s.isClosed() {
		return "", domain.NewError(domain.KindUpload, OpUpload, "", errClosed)
	}

	receipt := domain.UploadReceipt{Name: meta.Name, Size: meta.Size}
	if s.uploader != nil {
		r, err := s.uploader.Store(ctx, meta)
		if err != nil {
			return "", domain.NewError(domain.KindUpload, OpUpload, "", err)
		}
		receipt = r
	}
	if receipt.Name == "" {
		receipt.Name = meta.Name
	}
	if receipt.Size <= 0 {
		receipt.Size = meta.Size
	}

	ds := domain.Dataset{
		ID:          s.newID(),
		Name:        domain.DisplayName(receipt.Name),
		RowCount:    meta.Rows,
		ColumnCount: meta.Columns,
		SizeLabel:   domain.FormatSize(receipt.Size),
		LastUpdated: s.today(),
		Status:      domain.StatusPending,
		Tags:        domain.NormalizeTags(s.tagger(meta)),
		StorageKey:  receipt.Key,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.discard(ctx, receipt.Key)
		return "", domain.NewError(domain.KindUpload, OpUpload, "", errClosed)
	}
	if s.indexLocked(ds.ID) >= 0 {
		s.mu.Unlock()
		s.discard(ctx, receipt.Key)
		return "", domain.NewError(domain.KindValidation, OpUpload, ds.ID, errors.New("duplicate dataset id"))
	}
	s.datasets = slices.Insert(s.datasets, 0, ds)

	var (
		runCtx context.Context
		r      *run
	)
	if s.processor != nil {
		runCtx, r = s.startRunLocked(ds.ID)
	}
	ev := s.commitLocked(OpUpload, ds.ID)
	s.publishAndUnlock(ev)

	if r != nil {
		go s.process(runCtx, r, ds.Clone())
	}

	logger.With(logger.Fields{logger.FieldDatasetID: ds.ID}).
		WithSize(receipt.Size).
		WithStatus(string(ds.Status)).
		Info(ctx, "Dataset uploaded: %s", ds.Name)
	return ds.ID, nil
}

// Delete removes the dataset, cancels its processing run, if any, and
// removes its stored file when the uploader supports it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.NewError(domain.KindNotFound, OpDelete, id, nil)
	}
	key := s.datasets[i].StorageKey
	s.datasets = slices.Delete(s.datasets, i, i+1)
	s.cancelRunLocked(id)
	ev := s.commitLocked(OpDelete, id)
	s.publishAndUnlock(ev)

	if key != "" {
		ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
		s.discard(ctx, key)
		cancel()
	}

	s.log.WithField(logger.FieldDatasetID, id).Info("Dataset deleted")
	return nil
}

// StartProcessing moves a pending dataset to processing.
func (s *Store) StartProcessing(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || !domain.CanTransition(s.datasets[i].Status, domain.StatusProcessing) {
		s.mu.Unlock()
		return s.staleError(OpStartProcessing, id, i)
	}
	s.datasets[i].Status = domain.StatusProcessing
	s.datasets[i].LastUpdated = s.today()
	ev := s.commitLocked(OpStartProcessing, id)
	s.publishAndUnlock(ev)
	return nil
}

// CompleteProcessing applies a terminal outcome to a pending or
// processing dataset. A pending dataset passes through processing in
// the same critical section, so observers see a single event.
func (s *Store) CompleteProcessing(id string, outcome domain.Outcome) error {
	if err := outcome.Validate(); err != nil {
		return domain.NewError(domain.KindValidation, OpComplete, id, err)
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || !s.datasets[i].Status.Awaiting() {
		s.mu.Unlock()
		return s.staleError(OpComplete, id, i)
	}
	ds := &s.datasets[i]
	from := ds.Status
	if from == domain.StatusPending && domain.CanTransition(from, domain.StatusProcessing) {
		from = domain.StatusProcessing
	}
	if !domain.CanTransition(from, outcome.Status) {
		s.mu.Unlock()
		return s.staleError(OpComplete, id, i)
	}
	ds.Status = outcome.Status
	if outcome.Status == domain.StatusCompleted {
		score := outcome.Score
		ds.QualityScore = &score
	}
	ds.LastUpdated = s.today()
	ev := s.commitLocked(OpComplete, id)
	s.publishAndUnlock(ev)

	log := s.log.WithFields(logger.Fields{
		logger.FieldDatasetID: id,
		logger.FieldStatus:    string(outcome.Status),
	})
	if outcome.Status == domain.StatusFailed {
		log.WithField("reason", outcome.Reason).Warn("Dataset processing failed")
	} else {
		log.WithField("quality_score", outcome.Score).Info("Dataset processing completed")
	}
	return nil
}

// MarkAnalyzed records that an analysis ran on the dataset.
func (s *Store) MarkAnalyzed(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.NewError(domain.KindNotFound, OpMarkAnalyzed, id, nil)
	}
	now := s.now()
	s.datasets[i].LastAnalyzed = &now
	s.datasets[i].LastUpdated = now.Format(domain.DateLayout)
	ev := s.commitLocked(OpMarkAnalyzed, id)
	s.publishAndUnlock(ev)
	return nil
}

// MarkAllAnalyzed stamps every dataset and returns how many were marked.
func (s *Store) MarkAllAnalyzed() int {
	s.mu.Lock()
	now := s.now()
	for i := range s.datasets {
		at := now
		s.datasets[i].LastAnalyzed = &at
		s.datasets[i].LastUpdated = now.Format(domain.DateLayout)
	}
	n := len(s.datasets)
	ev := s.commitLocked(OpMarkAllAnalyzed, "")
	s.publishAndUnlock(ev)
	return n
}

// Snapshot returns a deep copy of the sequence.
func (s *Store) Snapshot() []domain.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAll(s.datasets)
}

// Get returns a copy of one dataset.
func (s *Store) Get(id string) (domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Dataset{}, domain.NewError(domain.KindNotFound, "get", id, nil)
	}
	return s.datasets[i].Clone(), nil
}

// Version returns the version of the last published event.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Close cancels all processing runs and waits for them to return.
// Uploads after Close fail. It must not be called from an observer.
func (s *Store) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for id := range s.runs {
			s.cancelRunLocked(id)
		}
		s.cancelBase()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Store) process(ctx context.Context, r *run, ds domain.Dataset) {
	defer s.wg.Done()
	defer s.finishRun(ds.ID, r)
	ctx = logger.SetDatasetID(s.log.WithContext(ctx), ds.ID)

	if err := s.StartProcessing(ds.ID); err != nil {
		logger.CtxDebug(ctx, "Processing skipped: %v", err)
		return
	}

	start := time.Now()
	outcome, err := s.processor.Process(ctx, ds)
	if ctx.Err() != nil {
		logger.CtxDebug(ctx, "Processing cancelled")
		return
	}
	if err != nil {
		outcome = domain.Failed(err.Error())
	} else if verr := outcome.Validate(); verr != nil {
		outcome = domain.Failed(verr.Error())
	}

	if err := s.CompleteProcessing(ds.ID, outcome); err != nil {
		logger.CtxDebug(ctx, "Processing result discarded: %v", err)
	}
	logger.With(logger.Fields{logger.FieldStatus: string(outcome.Status)}).
		WithDuration(start).
		Debug(ctx, "Processing run finished")
}

// startRunLocked registers a cancelable run for id. Called with mu held
// and the store open, so Close cannot miss the WaitGroup increment.
func (s *Store) startRunLocked(id string) (context.Context, *run) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	r := &run{cancel: cancel}
	s.runs[id] = r
	s.wg.Add(1)
	return ctx, r
}

func (s *Store) cancelRunLocked(id string) {
	if r, ok := s.runs[id]; ok {
		r.cancel()
		delete(s.runs, id)
	}
}

// finishRun releases the run unless it was already replaced or cancelled.
func (s *Store) finishRun(id string, r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.cancel()
	if s.runs[id] == r {
		delete(s.runs, id)
	}
}

// commitLocked bumps the version and captures a copy of the sequence.
// Called with mu held.
func (s *Store) commitLocked(op, id string) Event {
	s.version++
	return Event{Version: s.version, Op: op, ID: id, Datasets: domain.CloneAll(s.datasets)}
}

// publishAndUnlock hands mu over to notifyMu and delivers ev, so the
// next commit cannot be delivered before this one.
func (s *Store) publishAndUnlock(ev Event) {
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.log.WithFields(logger.Fields{
		logger.FieldVersion: ev.Version,
		"op":                ev.Op,
		logger.FieldCount:   len(ev.Datasets),
	}).Debug("Publishing dataset event")
	s.observers.dispatch(ev)
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// discard removes a stored file. Failures are logged; the object is
// then orphaned but no dataset refers to it.
func (s *Store) discard(ctx context.Context, key string) {
	rm, ok := s.uploader.(Remover)
	if !ok || key == "" {
		return
	}
	if err := rm.Remove(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to remove stored file")
		return
	}
	s.log.WithField("key", key).Debug("Stored file removed")
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.datasets, func(ds domain.Dataset) bool { return ds.ID == id })
}

func (s *Store) staleError(op, id string, idx int) error {
	if idx < 0 {
		return domain.NewError(domain.KindStaleTransition, op, id, errors.New("dataset no longer exists"))
	}
	return domain.NewError(domain.KindStaleTransition, op, id, nil)
}

func (s *Store) today() string {
	return s.now().Format(domain.DateLayout)
}

func validateSequence(in []domain.Dataset) error {
	seen := make(map[string]struct{}, len(in))
	for _, ds := range in {
		if err := ds.Validate(); err != nil {
			return err
		}
		if _, dup := seen[ds.ID]; dup {
			return fmt.Errorf("duplicate dataset id %q", ds.ID)
		}
		seen[ds.ID] = struct{}{}
	}
	return nil
}
