package transport

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"toolgate/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultNotificationBuffer is the capacity of a handle's notification queue.
// The engine drops notifications for a session whose queue is full.
const DefaultNotificationBuffer = 100

// handle is the state shared by both bindings.
type handle struct {
	id            string
	engine        Engine
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
	connected     atomic.Bool

	// mu serializes message processing for the session.
	mu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once

	hookMu  sync.Mutex
	onClose []func()
}

var _ server.ClientSession = (*handle)(nil)

func newHandle(id string, engine Engine, buffer int) *handle {
	if buffer <= 0 {
		buffer = DefaultNotificationBuffer
	}
	return &handle{
		id:            id,
		engine:        engine,
		notifications: make(chan mcp.JSONRPCNotification, buffer),
		done:          make(chan struct{}),
	}
}

func (h *handle) SessionID() string { return h.id }

func (h *handle) Initialize() { h.initialized.Store(true) }

func (h *handle) Initialized() bool { return h.initialized.Load() }

func (h *handle) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return h.notifications
}

// OnClose adds a hook run synchronously by Close. Hooks added after the
// handle closed run immediately.
func (h *handle) OnClose(fn func()) {
	h.hookMu.Lock()
	select {
	case <-h.done:
		h.hookMu.Unlock()
		fn()
		return
	default:
	}
	h.onClose = append(h.onClose, fn)
	h.hookMu.Unlock()
}

// Done is closed when the handle closes.
func (h *handle) Done() <-chan struct{} { return h.done }

// Closed reports whether Close has been called.
func (h *handle) Closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Connect registers the handle with the engine so server-initiated
// notifications can reach it.
func (h *handle) Connect(ctx context.Context) error {
	if h.Closed() {
		return ErrHandleClosed
	}
	if err := h.engine.RegisterSession(ctx, h); err != nil {
		return err
	}
	h.connected.Store(true)
	return nil
}

// Close releases the handle. Only the first call has any effect.
func (h *handle) Close() error {
	h.closeOnce.Do(func() {
		h.hookMu.Lock()
		close(h.done)
		hooks := h.onClose
		h.onClose = nil
		h.hookMu.Unlock()

		if h.connected.Load() {
			h.engine.UnregisterSession(context.Background(), h.id)
		}
		for _, fn := range hooks {
			fn()
		}
		logging.Debug("Transport", "Closed session %s", logging.TruncateSessionID(h.id))
	})
	return nil
}

// process hands one message to the engine and passes the engine's answer to
// deliver while still holding the session lock, so answers leave in the order
// their requests arrived. deliver receives nil for notifications.
func (h *handle) process(ctx context.Context, body []byte, deliver func(mcp.JSONRPCMessage) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Closed() {
		return ErrHandleClosed
	}

	ctx = h.engine.WithContext(ctx, h)
	resp := h.engine.HandleMessage(ctx, json.RawMessage(body))
	return deliver(resp)
}
