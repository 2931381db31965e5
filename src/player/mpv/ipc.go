package mpv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	commandRetries = 3
	retryDelay     = time.Millisecond * 100
	readDeadline   = time.Second
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command   []interface{} `json:"command"`
	RequestID int           `json:"request_id"`
}

// ipcResponse is the JSON structure received from mpv's IPC socket. Responses
// and asynchronous events arrive interleaved on the same connection, an event
// has Event set and no RequestID.
type ipcResponse struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Event     string          `json:"event"`
	RequestID int             `json:"request_id"`
}

// ipcConn is a persistent connection to mpv's JSON-IPC socket used for
// request/response commands. mpv requires newline delimited JSON.
//
// Safe for concurrent use, commands are serialized.
type ipcConn struct {
	socketPath string

	mu     sync.Mutex
	conn   net.Conn
	br     *bufio.Reader
	nextID int
}

func newIPCConn(socketPath string) *ipcConn {
	return &ipcConn{socketPath: socketPath}
}

// Command issues a single command and waits for its response. Transient
// connection errors are retried over a fresh connection.
func (c *ipcConn) Command(args ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < commandRetries; attempt++ {
		if attempt > 0 {
			c.reset()
			time.Sleep(retryDelay)
		}
		data, err := c.roundtrip(args)
		if err == nil {
			return data, nil
		}
		lastErr = err
		// mpv errors are definitive, only connection failures warrant a
		// retry.
		if _, ok := err.(*ipcError); ok {
			return nil, err
		}
	}
	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", commandRetries, lastErr)
}

func (c *ipcConn) roundtrip(args []interface{}) (json.RawMessage, error) {
	if c.conn == nil {
		conn, err := net.Dial("unix", c.socketPath)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		c.conn = conn
		c.br = bufio.NewReader(conn)
	}

	c.nextID++
	id := c.nextID
	payload, err := json.Marshal(ipcCommand{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	for {
		line, err := c.br.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		var resp ipcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // Skip unparseable lines.
		}
		// mpv broadcasts events to every client, skip them while waiting
		// for our response.
		if resp.Event != "" || resp.RequestID != id {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, &ipcError{Reason: resp.Error}
		}
		return resp.Data, nil
	}
}

// reset drops the connection so that the next command redials.
func (c *ipcConn) reset() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.br = nil
	}
}

func (c *ipcConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return nil
}

// ipcError is an error reported by mpv itself, as opposed to a transport
// failure.
type ipcError struct {
	Reason string
}

func (err *ipcError) Error() string {
	return fmt.Sprintf("mpv: %s", err.Reason)
}
