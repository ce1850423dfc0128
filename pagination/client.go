package pagination

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client implements Store by speaking the coordinator protocol. The
// connection is dialed lazily on first use and reused; one request is in
// flight at a time, so a single client serializes naturally. Transport
// failures surface as errors: there is no local fallback, offsets must stay
// process-global.
type Client struct {
	network string
	addr    string

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// NewClient creates a client for the coordinator at addr. network is passed
// to net.Dial ("unix" for the usual socket-file deployment).
func NewClient(network, addr string) *Client {
	return &Client{network: network, addr: addr}
}

// Get implements Store.
func (c *Client) Get(ctx context.Context, sender int64) (int, error) {
	resp, err := c.roundTrip(ctx, request{Command: CmdGet, Sender: sender})
	if err != nil {
		return 0, err
	}
	return resp.Offset, nil
}

// Update implements Store.
func (c *Client) Update(ctx context.Context, sender int64, offset int) error {
	_, err := c.roundTrip(ctx, request{Command: CmdUpdate, Sender: sender, Offset: offset})
	return err
}

// Purge implements Store.
func (c *Client) Purge(ctx context.Context, sender int64) error {
	_, err := c.roundTrip(ctx, request{Command: CmdPurge, Sender: sender})
	return err
}

// Close drops the connection. The client dials again on next use.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.r = nil, nil
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request) (response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		var d net.Dialer
		conn, err := d.DialContext(ctx, c.network, c.addr)
		if err != nil {
			return response{}, fmt.Errorf("dial coordinator: %w", err)
		}
		c.conn = conn
		c.r = bufio.NewReader(conn)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	req.ID = uuid.NewString()
	data, err := json.Marshal(req)
	if err != nil {
		return response{}, err
	}
	data = append(data, '\n')

	if _, err := c.conn.Write(data); err != nil {
		c.drop()
		return response{}, fmt.Errorf("write %s: %w", req.Command, err)
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		c.drop()
		return response{}, fmt.Errorf("read %s response: %w", req.Command, err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		c.drop()
		return response{}, fmt.Errorf("decode %s response: %w", req.Command, err)
	}
	if resp.ID != req.ID {
		c.drop()
		return response{}, fmt.Errorf("%s response correlation mismatch", req.Command)
	}
	if resp.Error != "" {
		return response{}, fmt.Errorf("coordinator: %s", resp.Error)
	}
	return resp, nil
}

// drop discards a connection in an unknown state.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.r = nil, nil
}
