package cluster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"

	"nodebell/pkg/registry"
)

// fakeConn is an in-memory znode tree.
type fakeConn struct {
	mu    sync.Mutex
	nodes map[string][]byte
	state zk.State
	err   error
	// block, if set, holds Create until it is closed
	block chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{nodes: make(map[string][]byte), state: zk.StateHasSession}
}

func (c *fakeConn) Exists(path string) (bool, *zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.nodes[path]
	return ok, &zk.Stat{}, c.err
}

func (c *fakeConn) Create(path string, data []byte, _ int32, _ []zk.ACL) (string, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	if _, ok := c.nodes[path]; ok {
		return "", zk.ErrNodeExists
	}
	c.nodes[path] = data
	return path, nil
}

func (c *fakeConn) Set(path string, data []byte, _ int32) (*zk.Stat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nodes[path]; !ok {
		return nil, zk.ErrNoNode
	}
	c.nodes[path] = data
	return &zk.Stat{}, nil
}

func (c *fakeConn) State() zk.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) Close() {}

func TestStartCreatesNodesPath(t *testing.T) {
	conn := newFakeConn()
	m := newZKMirror(conn, "/nodebell/")

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, p := range []string{"/nodebell", "/nodebell/nodes"} {
		if _, ok := conn.nodes[p]; !ok {
			t.Fatalf("path %s not created", p)
		}
	}
}

func TestStartTimesOutWithoutSession(t *testing.T) {
	conn := newFakeConn()
	conn.state = zk.StateConnecting
	m := newZKMirror(conn, "/nodebell")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start = %v, want DeadlineExceeded", err)
	}
}

func TestPublishCreatesThenOverwrites(t *testing.T) {
	conn := newFakeConn()
	m := newZKMirror(conn, "/nodebell")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := m.Publish(context.Background(), "n1", registry.StatusAlive); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if got := string(conn.nodes["/nodebell/nodes/n1"]); got != "alive" {
		t.Fatalf("znode data = %q, want alive", got)
	}
}

func TestPublishRejectsInvalidNames(t *testing.T) {
	m := newZKMirror(newFakeConn(), "/nodebell")

	for _, id := range []string{"", ".", "..", "a/b", "zookeeper"} {
		if err := m.Publish(context.Background(), id, registry.StatusAlive); !errors.Is(err, ErrInvalidNodeName) {
			t.Fatalf("Publish(%q) = %v, want ErrInvalidNodeName", id, err)
		}
	}
}

func TestPublishPropagatesConnErrors(t *testing.T) {
	conn := newFakeConn()
	conn.err = zk.ErrConnectionClosed
	m := newZKMirror(conn, "/nodebell")

	if err := m.Publish(context.Background(), "n1", registry.StatusAlive); !errors.Is(err, zk.ErrConnectionClosed) {
		t.Fatalf("Publish = %v, want ErrConnectionClosed", err)
	}
}

func TestPublishGivesUpOnUnresponsiveServer(t *testing.T) {
	conn := newFakeConn()
	m := newZKMirror(conn, "/nodebell")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.block = make(chan struct{})
	defer close(conn.block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Publish(ctx, "n1", registry.StatusAlive)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Publish = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Publish took %v after its deadline", elapsed)
	}
}

func TestMirrorWiredIntoRegistry(t *testing.T) {
	conn := newFakeConn()
	m := newZKMirror(conn, "/nodebell")
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	r := registry.New(registry.WithMirror(m))
	r.Register(context.Background(), "n1")
	r.Register(context.Background(), "bad/id")
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if _, ok := conn.nodes["/nodebell/nodes/n1"]; !ok {
		t.Fatal("n1 not mirrored")
	}
	// invalid znode names stay local
	if _, ok := r.Lookup("bad/id"); !ok {
		t.Fatal("bad/id missing from local registry")
	}
}
