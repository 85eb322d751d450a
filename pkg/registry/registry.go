package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zhangyunhao116/skipmap"
)

type Status string

const (
	// StatusAlive is the only status ever written by Register.
	StatusAlive Status = "alive"
)

const (
	defaultMirrorQueue   = 1024
	defaultMirrorTimeout = 5 * time.Second
)

// Entry is a single registered node.
type Entry struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// Mirror receives a copy of every registration, e.g. a ZooKeeper tree.
type Mirror interface {
	Publish(ctx context.Context, id string, status Status) error
}

type entryMap = skipmap.FuncMap[string, Status]

// Registry maps node ids to their liveness status. Entries are never removed.
// It is safe for concurrent use; concurrent writes to the same id are last write wins.
//
// Mirror writes are queued and applied in order by a single goroutine, so a
// slow mirror never delays Register. When the queue is full the write is
// dropped and logged.
type Registry struct {
	nodes *entryMap

	mirror        Mirror
	mirrorQueue   int
	mirrorTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

type Option func(*Registry)

// WithMirror forwards every registration to m after it is stored locally.
func WithMirror(m Mirror) Option {
	return func(r *Registry) {
		r.mirror = m
	}
}

// WithMirrorQueue sets how many mirror writes may wait for the mirror.
func WithMirrorQueue(size int) Option {
	return func(r *Registry) {
		r.mirrorQueue = size
	}
}

// WithMirrorTimeout bounds a single mirror write.
func WithMirrorTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.mirrorTimeout = d
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		nodes: skipmap.NewFunc[string, Status](func(a, b string) bool {
			return strings.Compare(a, b) < 0
		}),
		mirrorQueue:   defaultMirrorQueue,
		mirrorTimeout: defaultMirrorTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.mirror != nil {
		r.queue = make(chan Entry, r.mirrorQueue)
		r.done = make(chan struct{})
		go r.runMirror()
	}
	return r
}

// Count returns the number of distinct ids registered so far.
func (r *Registry) Count() int {
	return r.nodes.Len()
}

// Register marks id as alive. Any id is accepted, including the empty one.
// Mirror failures are logged and do not affect the local registry.
func (r *Registry) Register(_ context.Context, id string) Status {
	r.nodes.Store(id, StatusAlive)

	if r.mirror != nil {
		r.enqueue(Entry{ID: id, Status: StatusAlive})
	}
	return StatusAlive
}

// Lookup returns the status of id and whether it was ever registered.
func (r *Registry) Lookup(id string) (Status, bool) {
	return r.nodes.Load(id)
}

// List returns all entries ordered by id.
func (r *Registry) List() []Entry {
	result := make([]Entry, 0, r.nodes.Len())
	r.nodes.Range(func(id string, status Status) bool {
		result = append(result, Entry{ID: id, Status: status})
		return true
	})

	return result
}

// Close stops the mirror worker after it has applied the queued writes,
// or when ctx is done. Registrations after Close are not mirrored.
func (r *Registry) Close(ctx context.Context) error {
	if r.mirror == nil {
		return nil
	}

	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) enqueue(e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		slog.Warn("Registry closed, mirror write dropped", "node_id", e.ID)
		return
	}

	select {
	case r.queue <- e:
	default:
		slog.Warn("Mirror queue full, write dropped", "node_id", e.ID, "queue", cap(r.queue))
	}
}

func (r *Registry) runMirror() {
	defer close(r.done)

	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.mirrorTimeout)
		if err := r.mirror.Publish(ctx, e.ID, e.Status); err != nil {
			slog.Warn("Failed to mirror node registration", "node_id", e.ID, "error", err)
		}
		cancel()
	}
}
