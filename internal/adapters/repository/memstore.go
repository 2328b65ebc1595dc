package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/quickshop/internal/domain/session"
	"github.com/okian/quickshop/pkg/metrics"
)

const (
	defaultCapacity      = 1000
	defaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Eviction reasons reported to metrics.
const (
	evictCapacity = "capacity"
	evictIdle     = "idle"
	evictDeleted  = "deleted"
)

// node is an entry of the recency list. head.next is the most recently
// used session, head.prev the least.
type node struct {
	sess     *session.Session
	lastUsed time.Time
	prev     *node
	next     *node
}

// MemStore is an in-memory Store with LRU capacity eviction and idle
// expiry.
type MemStore struct {
	mu   sync.Mutex
	byID map[string]*node
	head node // sentinel

	capacity      int
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemStore creates a store and starts its idle sweeper, which runs
// until ctx is done or Close is called.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		byID:          make(map[string]*node),
		capacity:      defaultCapacity,
		idleTTL:       defaultIdleTTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	s.head.next = &s.head
	s.head.prev = &s.head

	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateActiveSessions(0)
	if s.idleTTL > 0 {
		s.startSweeper(ctx)
	}
	return s
}

func (s *MemStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Close stops the sweeper.
func (s *MemStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemStore) Create(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return ErrInvalid
	}

	s.mu.Lock()
	if _, ok := s.byID[sess.ID]; ok {
		s.mu.Unlock()
		return ErrExists
	}
	evicted := 0
	for s.capacity > 0 && len(s.byID) >= s.capacity {
		s.remove(s.head.prev)
		evicted++
	}
	n := &node{sess: sess, lastUsed: s.now()}
	s.byID[sess.ID] = n
	s.pushFront(n)
	count := len(s.byID)
	s.mu.Unlock()

	for i := 0; i < evicted; i++ {
		metrics.RecordSessionEviction(evictCapacity)
	}
	metrics.RecordSessionCreated()
	metrics.UpdateActiveSessions(count)
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(n)
	return n.sess, nil
}

func (s *MemStore) Put(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[sess.ID]
	if !ok {
		return ErrNotFound
	}
	n.sess = sess
	s.touch(n)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	n, ok := s.byID[id]
	if ok {
		s.remove(n)
	}
	count := len(s.byID)
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	metrics.RecordSessionEviction(evictDeleted)
	metrics.UpdateActiveSessions(count)
	return nil
}

func (s *MemStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (s *MemStore) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	removed := 0
	// The list is ordered by recency, so stop at the first fresh entry.
	for n := s.head.prev; n != &s.head && n.lastUsed.Before(cutoff); n = s.head.prev {
		s.remove(n)
		removed++
	}
	count := len(s.byID)
	s.mu.Unlock()

	for i := 0; i < removed; i++ {
		metrics.RecordSessionEviction(evictIdle)
	}
	if removed > 0 {
		metrics.UpdateActiveSessions(count)
	}
	return removed
}

// touch must be called with s.mu held.
func (s *MemStore) touch(n *node) {
	n.lastUsed = s.now()
	s.unlink(n)
	s.pushFront(n)
}

// remove must be called with s.mu held.
func (s *MemStore) remove(n *node) {
	delete(s.byID, n.sess.ID)
	s.unlink(n)
}

func (s *MemStore) pushFront(n *node) {
	n.prev = &s.head
	n.next = s.head.next
	s.head.next.prev = n
	s.head.next = n
}

func (s *MemStore) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}
