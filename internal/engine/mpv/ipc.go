package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// event is one line of mpv's JSON IPC protocol. Plain events carry Event
// (and for end-file a Reason); property observations carry Name and Data.
type event struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	RequestID int             `json:"request_id"`
	Error     string          `json:"error"`
}

// client talks to a running mpv over its IPC socket.
type client struct {
	socketPath string
	events     chan event

	mu   sync.Mutex
	conn net.Conn
}

func newClient(socketPath string) *client {
	return &client{
		socketPath: socketPath,
		events:     make(chan event, 100),
	}
}

// connect dials the socket, retrying until mpv has created it or the
// context expires, then starts the read loop.
func (c *client) connect(ctx context.Context, attempts int, delay time.Duration) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		if _, err := os.Stat(c.socketPath); err == nil {
			var d net.Dialer
			conn, err := d.DialContext(ctx, "unix", c.socketPath)
			if err == nil {
				c.mu.Lock()
				c.conn = conn
				c.mu.Unlock()
				go c.readLoop(conn)
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("mpv socket %s not reachable after %d attempts", c.socketPath, attempts)
}

// readLoop feeds decoded IPC lines into the event channel until the
// connection dies, then closes the channel.
func (c *client) readLoop(conn net.Conn) {
	defer close(c.events)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var ev event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		c.events <- ev
	}
}

// command sends one command line to mpv.
func (c *client) command(args ...any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("mpv: not connected")
	}

	data, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("mpv: send command: %w", err)
	}
	return nil
}

// observe subscribes to property-change events for a property.
func (c *client) observe(id int, property string) error {
	return c.command("observe_property", id, property)
}

func (c *client) close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
