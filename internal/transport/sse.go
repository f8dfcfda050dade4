package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"toolgate/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// DefaultSSEWriteTimeout bounds the lifetime of one event stream.
	DefaultSSEWriteTimeout = 6 * time.Hour

	// DefaultMessagePath is where clients POST messages for an event stream.
	DefaultMessagePath = "/messages"

	defaultOutboundBuffer = 64
)

// SSEOptions configures an SSEHandle.
type SSEOptions struct {
	MessagePath string

	// WriteTimeout is the write deadline applied to the stream when it opens.
	WriteTimeout time.Duration

	// KeepAlive, when positive, is the interval between comment lines written
	// to idle streams.
	KeepAlive time.Duration

	NotificationBuffer int
}

// SSEHandle is a session of the event-stream binding.
type SSEHandle struct {
	*handle
	messagePath  string
	writeTimeout time.Duration
	keepAlive    time.Duration
	outbound     chan []byte
}

// NewSSEHandle creates an event-stream handle for session id.
func NewSSEHandle(id string, engine Engine, opts SSEOptions) *SSEHandle {
	if opts.MessagePath == "" {
		opts.MessagePath = DefaultMessagePath
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultSSEWriteTimeout
	}
	return &SSEHandle{
		handle:       newHandle(id, engine, opts.NotificationBuffer),
		messagePath:  opts.MessagePath,
		writeTimeout: opts.WriteTimeout,
		keepAlive:    opts.KeepAlive,
		outbound:     make(chan []byte, defaultOutboundBuffer),
	}
}

// Endpoint is the URL announced to the client in the endpoint event.
func (h *SSEHandle) Endpoint() string {
	return h.messagePath + "?sessionId=" + url.QueryEscape(h.id)
}

// Serve owns the event stream until the client disconnects, the write
// deadline passes or the handle is closed. The handle is closed when Serve
// returns.
func (h *SSEHandle) Serve(w http.ResponseWriter, r *http.Request) error {
	defer h.Close()

	rc := http.NewResponseController(w)
	if h.writeTimeout > 0 {
		if err := rc.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logging.Warn("Transport", "Failed to set write deadline for session %s: %v", logging.TruncateSessionID(h.id), err)
		}
	}

	setEventStreamHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := writeEvent(w, "endpoint", []byte(h.Endpoint())); err != nil {
		return nil
	}
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("streaming unsupported: %w", err)
	}

	var tick <-chan time.Time
	if h.keepAlive > 0 {
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var err error
		select {
		case <-r.Context().Done():
			logging.Debug("Transport", "Event stream for session %s closed by client", logging.TruncateSessionID(h.id))
			return nil
		case <-h.done:
			return nil
		case data := <-h.outbound:
			err = writeEvent(w, "message", data)
		case n := <-h.notifications:
			data, merr := json.Marshal(n)
			if merr != nil {
				logging.Error("Transport", merr, "Failed to marshal notification %s", n.Method)
				continue
			}
			err = writeEvent(w, "message", data)
		case <-tick:
			_, err = w.Write([]byte(": ping\n\n"))
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			logging.Debug("Transport", "Event stream for session %s ended: %v", logging.TruncateSessionID(h.id), err)
			return nil
		}
	}
}

// HandlePostMessage processes one message POSTed to the message endpoint.
// The message is acknowledged with 202 and its answer is queued on the
// stream.
//
// ErrHandleClosed is returned, with nothing written, when the stream is gone.
func (h *SSEHandle) HandlePostMessage(w http.ResponseWriter, r *http.Request, body []byte) error {
	if !json.Valid(body) {
		http.Error(w, "Invalid message: malformed JSON", http.StatusBadRequest)
		return nil
	}

	err := h.process(r.Context(), body, func(resp mcp.JSONRPCMessage) error {
		if resp == nil {
			return nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		select {
		case h.outbound <- data:
			return nil
		case <-h.done:
			return ErrHandleClosed
		case <-r.Context().Done():
			return r.Context().Err()
		}
	})
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Accepted"))
	return nil
}
