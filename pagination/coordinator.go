package pagination

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// Coordinator serves the pagination protocol on behalf of a Store. One
// coordinator runs per bot deployment; every worker process connects to it,
// which is what keeps offsets identical across the pool.
type Coordinator struct {
	store Store
	log   *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewCoordinator creates a coordinator over store. A nil log falls back to
// slog.Default().
func NewCoordinator(store Store, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		store: store,
		log:   log,
		conns: make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until Close is called. It blocks; run it
// in its own goroutine.
func (c *Coordinator) Serve(ln net.Listener) error {
	c.mu.Lock()
	c.ln = ln
	c.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if c.closed.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		c.mu.Lock()
		c.conns[conn] = struct{}{}
		c.mu.Unlock()

		c.wg.Add(1)
		go c.handle(conn)
	}
}

// Close stops accepting, drops open connections and waits for handlers.
func (c *Coordinator) Close() error {
	c.closed.Store(true)

	c.mu.Lock()
	var err error
	if c.ln != nil {
		err = c.ln.Close()
	}
	for conn := range c.conns {
		conn.Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	return err
}

func (c *Coordinator) handle(conn net.Conn) {
	defer c.wg.Done()
	defer func() {
		conn.Close()
		c.mu.Lock()
		delete(c.conns, conn)
		c.mu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	out := bufio.NewWriter(conn)

	for scanner.Scan() {
		resp := c.serve(scanner.Bytes())
		data, err := json.Marshal(resp)
		if err != nil {
			c.log.Error("marshal response", "error", err)
			return
		}
		data = append(data, '\n')
		if _, err := out.Write(data); err != nil {
			return
		}
		if err := out.Flush(); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && !c.closed.Load() && !errors.Is(err, net.ErrClosed) {
		c.log.Debug("connection dropped", "error", err)
	}
}

// serve executes one frame against the store. Requests for the same sender
// serialize inside the store; each connection is already serial by itself.
func (c *Coordinator) serve(frame []byte) response {
	cmd, err := peekCommand(frame)
	if err != nil {
		return response{Error: err.Error()}
	}

	var req request
	if err := json.Unmarshal(frame, &req); err != nil {
		return response{Error: ErrInvalidFrame.Error()}
	}

	resp := response{ID: req.ID}
	ctx := context.Background()
	switch cmd {
	case CmdGet:
		offset, err := c.store.Get(ctx, req.Sender)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Offset = offset
	case CmdUpdate:
		if err := c.store.Update(ctx, req.Sender, req.Offset); err != nil {
			resp.Error = err.Error()
		}
	case CmdPurge:
		if err := c.store.Purge(ctx, req.Sender); err != nil {
			resp.Error = err.Error()
		}
	default:
		resp.Error = fmt.Sprintf("unknown command %q", cmd)
	}
	return resp
}
