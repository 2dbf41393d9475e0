package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"NewsDigest/internal/domain"
)

const (
	readLimit    = 64 << 20
	eventBuffer  = 64
	closeTimeout = 2 * time.Second
)

// commandEnvelope is written for every command; ID correlates the response.
type commandEnvelope struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// message is anything the browser sends: a response (ID set) or an event (Method set).
type message struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ProtocolError  `json:"error,omitempty"`
}

// ProtocolError is the {error} member of a failed command response.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("protocol error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

// Conn is the duplex command connection of one tab.
type Conn struct {
	ws      *websocket.Conn
	timeout time.Duration
	logger  *slog.Logger

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]chan message
	events  chan message

	cancel    context.CancelFunc
	done      chan struct{}
	readErr   error
	closeOnce sync.Once
}

// Dial opens the tab websocket. Every Send waits at most commandTimeout.
func Dial(ctx context.Context, wsURL string, commandTimeout time.Duration, logger *slog.Logger) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	ws.SetReadLimit(readLimit)

	if logger == nil {
		logger = slog.Default()
	}
	readCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:      ws,
		timeout: commandTimeout,
		logger:  logger,
		pending: map[int64]chan message{},
		events:  make(chan message, eventBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.readLoop(readCtx)
	return c, nil
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			c.readErr = err
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("discard undecodable message", "error", err)
			continue
		}

		if msg.ID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}

		if msg.Method != "" {
			select {
			case c.events <- msg:
			default:
			}
		}
	}
}

// Send issues method with params and decodes the matching result into out.
func (c *Conn) Send(ctx context.Context, method string, params, out any) error {
	id := c.nextID.Add(1)
	reply := make(chan message, 1)

	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(commandEnvelope{ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", method, err)
	}
	if err := c.ws.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("%s: write: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case msg := <-reply:
		if msg.Error != nil {
			return fmt.Errorf("%s: %w", method, msg.Error)
		}
		if out != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, out); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s after %s: %w", method, c.timeout, domain.ErrCommandTimeout)
	case <-c.done:
		return fmt.Errorf("%s: connection closed: %w", method, c.readErr)
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// WaitEvent waits for an event named method; false means the wait expired.
func (c *Conn) WaitEvent(ctx context.Context, method string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case msg := <-c.events:
			if msg.Method == method {
				return true
			}
		case <-timer.C:
			return false
		case <-c.done:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// DrainEvents drops buffered events so a later WaitEvent sees only new ones.
func (c *Conn) DrainEvents() {
	for {
		select {
		case <-c.events:
		default:
			return
		}
	}
}

// Close performs the close handshake and stops the reader. Safe to call twice.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close(websocket.StatusNormalClosure, "")
		c.cancel()
		select {
		case <-c.done:
		case <-time.After(closeTimeout):
		}
	})
	return err
}
