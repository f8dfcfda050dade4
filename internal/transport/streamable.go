package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"toolgate/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
)

// StreamableOptions configures a StreamableHandle.
type StreamableOptions struct {
	// Stateless handles serve a single POST: no session header is sent and
	// repeated initialization is allowed.
	Stateless bool

	// StreamTimeout is the write deadline of a notification stream. Zero
	// means DefaultSSEWriteTimeout.
	StreamTimeout time.Duration

	NotificationBuffer int
}

// StreamableHandle is a session of the streamable binding.
type StreamableHandle struct {
	*handle
	stateless     bool
	streamTimeout time.Duration
	streamActive  atomic.Bool
}

// NewStreamableHandle creates a handle for session id. The handle is not
// routable or connected to the engine until the caller registers and
// connects it.
func NewStreamableHandle(id string, engine Engine, opts StreamableOptions) *StreamableHandle {
	if opts.StreamTimeout == 0 {
		opts.StreamTimeout = DefaultSSEWriteTimeout
	}
	return &StreamableHandle{
		handle:        newHandle(id, engine, opts.NotificationBuffer),
		stateless:     opts.Stateless,
		streamTimeout: opts.StreamTimeout,
	}
}

// HandleRequest processes one POSTed JSON-RPC message and writes the engine's
// answer as the response body. Messages that produce no answer are
// acknowledged with 202. When the engine rejects the request that opens the
// session, the handle is closed and no session id is sent.
//
// A non-nil error means nothing has been written yet.
func (h *StreamableHandle) HandleRequest(w http.ResponseWriter, r *http.Request, body []byte) error {
	if !json.Valid(body) {
		WriteError(w, http.StatusBadRequest, CodeParseError, "Parse error: Invalid JSON")
		return nil
	}
	opening := false
	if !h.stateless && IsInitializeRequest(body) {
		if h.Initialized() {
			WriteError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: Server already initialized")
			return nil
		}
		opening = true
	}

	var resp mcp.JSONRPCMessage
	err := h.process(r.Context(), body, func(m mcp.JSONRPCMessage) error {
		resp = m
		return nil
	})
	if errors.Is(err, ErrHandleClosed) {
		WriteError(w, http.StatusNotFound, CodeSessionNotFound, "Session not found")
		return nil
	}
	if err != nil {
		return err
	}

	if resp == nil {
		h.setSessionHeader(w)
		w.WriteHeader(http.StatusAccepted)
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if opening && isErrorResponse(data) {
		logging.Info("Transport", "Initialization of session %s rejected, closing it", logging.TruncateSessionID(h.id))
		_ = h.Close()
	} else {
		h.setSessionHeader(w)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Transport", "Client went away before response for session %s: %v", logging.TruncateSessionID(h.id), err)
	}
	return nil
}

func (h *StreamableHandle) setSessionHeader(w http.ResponseWriter) {
	if !h.stateless {
		w.Header().Set(HeaderSessionID, h.id)
	}
}

// ServeStream streams server-initiated notifications until the client
// disconnects or the session closes. Only one stream may be attached at a
// time. Disconnecting the stream does not end the session.
func (h *StreamableHandle) ServeStream(w http.ResponseWriter, r *http.Request) error {
	if !acceptsEventStream(r) {
		WriteError(w, http.StatusNotAcceptable, CodeServerError, "Not Acceptable: Client must accept text/event-stream")
		return nil
	}
	if !h.streamActive.CompareAndSwap(false, true) {
		WriteError(w, http.StatusConflict, CodeServerError, "Conflict: Only one SSE stream is allowed per session")
		return nil
	}
	defer h.streamActive.Store(false)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.streamTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Warn("Transport", "Failed to set write deadline for session %s: %v", logging.TruncateSessionID(h.id), err)
	}
	setEventStreamHeaders(w)
	w.Header().Set(HeaderSessionID, h.id)
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return fmt.Errorf("streaming unsupported: %w", err)
	}

	logging.Debug("Transport", "Notification stream attached to session %s", logging.TruncateSessionID(h.id))
	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-h.done:
			return nil
		case n := <-h.notifications:
			data, err := json.Marshal(n)
			if err != nil {
				logging.Error("Transport", err, "Failed to marshal notification %s", n.Method)
				continue
			}
			if err := writeEvent(w, "message", data); err != nil {
				return nil
			}
			if err := rc.Flush(); err != nil {
				return nil
			}
		}
	}
}

// Terminate ends the session on client request.
func (h *StreamableHandle) Terminate(w http.ResponseWriter) {
	_ = h.Close()
	w.WriteHeader(http.StatusOK)
}

func acceptsEventStream(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		for _, part := range strings.Split(v, ",") {
			mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
			if mt == "text/event-stream" || mt == "*/*" {
				return true
			}
		}
	}
	return false
}
