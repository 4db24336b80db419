package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"phonebook/internal/contacts"
	"phonebook/internal/query"
	"phonebook/pkg/logger"
)

// ErrDisabled is returned by operations that need a configured directory.
var ErrDisabled = errors.New("directory sync is disabled")

// ErrStopped is returned when work is offered to a stopped Syncer.
var ErrStopped = errors.New("directory sync is stopped")

// Reconcilable is satisfied by *Reconciler.
type Reconcilable interface {
	Reconcile(ctx context.Context, c contacts.Contact) (Outcome, error)
}

// ContactSource reports the current contact for a phone number. Store and
// MemoryStore both satisfy it.
type ContactSource interface {
	GetByPhoneNumber(ctx context.Context, phone string) (contacts.Contact, bool, error)
}

// ContactLister pages through every contact.
type ContactLister interface {
	List(ctx context.Context, req contacts.ListRequest) (query.Page[contacts.Details, contacts.Key], error)
}

type SyncConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// job names a directory entry by phone number. The contact state is read
// when the job runs, never when it is queued.
type job struct {
	ctx   context.Context
	phone string
}

// Syncer runs reconciliations in the background on a bounded queue.
//
// Callers never wait for the directory and never see its errors. Outcomes
// are logged and counted. When the queue is full the job is dropped.
//
// Jobs for one phone number never run concurrently. A request for a number
// that is already queued is merged into the queued job; one for a number
// being reconciled makes that worker run it again afterwards. Every run reads
// the latest stored contact, so the last write always wins in the directory.
type Syncer struct {
	rec     Reconcilable
	src     ContactSource
	timeout time.Duration
	workers int

	mu     sync.RWMutex // guards jobs against send after close
	jobs   chan job
	closed bool
	wg     sync.WaitGroup

	keysMu  sync.Mutex
	queued  map[string]bool
	running map[string]bool
	dirty   map[string]bool
}

func NewSyncer(rec Reconcilable, src ContactSource, cfg SyncConfig) *Syncer {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Syncer{
		rec:     rec,
		src:     src,
		timeout: cfg.Timeout,
		workers: cfg.Workers,
		jobs:    make(chan job, cfg.QueueSize),
		queued:  map[string]bool{},
		running: map[string]bool{},
		dirty:   map[string]bool{},
	}
}

// Start launches the workers.
func (s *Syncer) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work()
	}
}

// Enqueue schedules a reconciliation of c's phone number without blocking.
// The job keeps ctx's values but not its cancellation.
func (s *Syncer) Enqueue(ctx context.Context, c contacts.Contact) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || !s.claim(c.PhoneNumber) {
		return
	}
	select {
	case s.jobs <- job{ctx: context.WithoutCancel(ctx), phone: c.PhoneNumber}:
	default:
		s.unclaim(c.PhoneNumber)
		jobsDropped.Inc()
		logger.From(ctx).Warn("directory sync queue full, job dropped", "contact_id", c.ID, "phone_number", c.PhoneNumber)
	}
}

// ResyncAll queues every contact, waiting for queue room as needed.
// It returns the number of contacts visited.
func (s *Syncer) ResyncAll(ctx context.Context, src ContactLister) (int, error) {
	n := 0
	req := contacts.ListRequest{Limit: query.MaxLimit}
	for {
		page, err := src.List(ctx, req)
		if err != nil {
			return n, err
		}
		for _, d := range page.Items {
			if err := s.enqueueWait(ctx, d.PhoneNumber); err != nil {
				return n, err
			}
			n++
		}
		if page.NextKey == nil {
			return n, nil
		}
		req.AfterKey = page.NextKey
	}
}

func (s *Syncer) enqueueWait(ctx context.Context, phone string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStopped
	}
	if !s.claim(phone) {
		return nil
	}
	select {
	case s.jobs <- job{ctx: context.WithoutCancel(ctx), phone: phone}:
		return nil
	case <-ctx.Done():
		s.unclaim(phone)
		return ctx.Err()
	}
}

// claim reports whether phone needs a new queue slot. When it does not, the
// pending or running job already covers the request.
func (s *Syncer) claim(phone string) bool {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	switch {
	case s.queued[phone]:
		return false
	case s.running[phone]:
		s.dirty[phone] = true
		return false
	}
	s.queued[phone] = true
	return true
}

func (s *Syncer) unclaim(phone string) {
	s.keysMu.Lock()
	delete(s.queued, phone)
	s.keysMu.Unlock()
}

// Stop closes the queue and waits for queued jobs to drain or ctx to end.
func (s *Syncer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) work() {
	defer s.wg.Done()
	for j := range s.jobs {
		s.keysMu.Lock()
		delete(s.queued, j.phone)
		s.running[j.phone] = true
		s.keysMu.Unlock()

		for {
			s.run(j)

			s.keysMu.Lock()
			again := s.dirty[j.phone]
			delete(s.dirty, j.phone)
			if !again {
				delete(s.running, j.phone)
			}
			s.keysMu.Unlock()
			if !again {
				break
			}
		}
	}
}

func (s *Syncer) run(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, s.timeout)
	defer cancel()
	log := logger.From(ctx).With("phone_number", j.phone)

	// A number with no contact left is reconciled as not includable.
	c, found, err := s.src.GetByPhoneNumber(ctx, j.phone)
	if err != nil {
		reconcileTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		log.Error("directory reconcile failed to load contact", "err", err)
		return
	}
	if !found {
		c = contacts.Contact{PhoneNumber: j.phone}
	}

	out, err := s.rec.Reconcile(ctx, c)
	reconcileTotal.WithLabelValues(string(out)).Inc()
	if err != nil {
		log.Error("directory reconcile failed", "contact_id", c.ID, "err", err)
		return
	}
	log.Debug("directory reconciled", "contact_id", c.ID, "outcome", out)
}

// Disabled stands in for a Syncer when no directory is configured.
type Disabled struct{}

func (Disabled) Enqueue(ctx context.Context, c contacts.Contact) {}

func (Disabled) ResyncAll(ctx context.Context, src ContactLister) (int, error) {
	return 0, ErrDisabled
}
