// Package dedupe detects repeated batch inputs by content.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

const defaultMaxSize = 10_000

// Deduper records keys so each one is processed at most once.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records
	// it when it was not. It is atomic.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed input may be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps keys in a map with insertion order in a ring so the
// oldest key is evicted once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	head    int
	maxSize int
}

// NewInMemoryDeduper creates a deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; !ok {
		return
	}
	delete(d.seen, key)
	for i := d.head; i < len(d.order); i++ {
		if d.order[i] == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// evictOldest drops the first live key in insertion order. Callers hold mu.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.order) {
		key := d.order[d.head]
		d.order[d.head] = ""
		d.head++
		if _, ok := d.seen[key]; ok {
			delete(d.seen, key)
			break
		}
	}
	// Compact once the dead prefix dominates.
	if d.head > len(d.order)/2 {
		d.order = append([]string(nil), d.order[d.head:]...)
		d.head = 0
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// Fingerprint returns the hex SHA-256 of everything read from r.
func Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FingerprintFile hashes the file at path.
func FingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	defer f.Close()
	return Fingerprint(f)
}
