package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"nodebell/pkg/registry"
)

var ErrInvalidNodeName = errors.New("nodebell: node id is not a valid znode name")

// zkConn is the subset of *zk.Conn used by the mirror.
type zkConn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	State() zk.State
	Close()
}

// ZKMirror copies registry writes into <root>/nodes/<id>.
type ZKMirror struct {
	conn     zkConn
	rootPath string
}

// servers: ["zk1:2181", "zk2:2181"]
func NewZKMirror(servers []string, rootPath string, sessionTimeout time.Duration) (*ZKMirror, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	return newZKMirror(conn, rootPath), nil
}

func newZKMirror(conn zkConn, rootPath string) *ZKMirror {
	return &ZKMirror{
		conn:     conn,
		rootPath: strings.TrimRight(rootPath, "/"),
	}
}

func (m *ZKMirror) Close() error {
	m.conn.Close()
	return nil
}

func (m *ZKMirror) nodesPath() string {
	return m.rootPath + "/nodes"
}

func (m *ZKMirror) ensurePath(path string) error {
	parts := strings.Split(path, "/")
	cur := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = cur + "/" + p
		exists, _, err := m.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = m.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && !errors.Is(err, zk.ErrNodeExists) {
				return err
			}
		}
	}
	return nil
}

// Start waits for the session and creates the nodes parent path.
func (m *ZKMirror) Start(ctx context.Context) error {
	if err := m.waitConnected(ctx); err != nil {
		return err
	}
	if err := m.ensurePath(m.nodesPath()); err != nil {
		return fmt.Errorf("ensure nodes path: %w", err)
	}
	slog.Info("ZooKeeper mirror ready", "path", m.nodesPath())
	return nil
}

// Publish implements registry.Mirror. The znode is persistent: registry
// entries live as long as the process, and the mirror keeps them after it.
//
// zk calls take no context, so Publish gives up when ctx is done and leaves
// the call to finish in the background.
func (m *ZKMirror) Publish(ctx context.Context, id string, status registry.Status) error {
	if !validNodeName(id) {
		return fmt.Errorf("%w: %q", ErrInvalidNodeName, id)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.write(m.nodesPath()+"/"+id, []byte(status))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("mirror %s: %w", id, ctx.Err())
	}
}

func (m *ZKMirror) write(path string, data []byte) error {
	_, err := m.conn.Create(path, data, 0, zk.WorldACL(zk.PermAll))
	if err == nil {
		return nil
	}
	if !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("create %s: %w", path, err)
	}
	// last write wins, same as the local registry
	if _, err := m.conn.Set(path, data, -1); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (m *ZKMirror) waitConnected(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		st := m.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("zk: not connected, state=%v: %w", st, ctx.Err())
		case <-ticker.C:
		}
	}
}

func validNodeName(id string) bool {
	if id == "" || id == "." || id == ".." || id == "zookeeper" {
		return false
	}
	return !strings.ContainsAny(id, "/\x00")
}
