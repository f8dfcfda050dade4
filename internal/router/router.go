package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"toolgate/internal/session"
	"toolgate/internal/transport"
	"toolgate/pkg/logging"
)

// DefaultMaxBodyBytes bounds POSTed JSON-RPC bodies.
const DefaultMaxBodyBytes int64 = 4 << 20

// Reasons reported to the Observer for rejected requests.
const (
	ReasonNoValidSession   = "no_valid_session"
	ReasonSessionLimit     = "session_limit"
	ReasonMethodNotAllowed = "method_not_allowed"
	ReasonBodyTooLarge     = "body_too_large"
)

// Observer is told about every request the router turns away.
type Observer interface {
	RoutingRejected(b session.Binding, reason string)
}

type nopObserver struct{}

func (nopObserver) RoutingRejected(session.Binding, string) {}

// Options configures a Router.
type Options struct {
	// Stateless serves /mcp without sessions.
	Stateless bool

	MaxBodyBytes int64

	// SSE configures handles of the event-stream binding.
	SSE transport.SSEOptions

	Observer Observer
}

// Router routes requests of both bindings through a session store.
type Router struct {
	store    *session.Store
	engine   transport.Engine
	opts     Options
	observer Observer
}

// New creates a router over store and engine.
func New(store *session.Store, engine transport.Engine, opts Options) *Router {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.SSE.MessagePath == "" {
		opts.SSE.MessagePath = transport.DefaultMessagePath
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Router{store: store, engine: engine, opts: opts, observer: obs}
}

// Stateless reports whether the router serves /mcp without sessions.
func (rt *Router) Stateless() bool { return rt.opts.Stateless }

// MessagePath is the path the event-stream binding announces for messages.
func (rt *Router) MessagePath() string { return rt.opts.SSE.MessagePath }

// Streamable returns the handler for /mcp.
func (rt *Router) Streamable() http.Handler {
	if rt.opts.Stateless {
		return handlerFunc(rt.serveStateless)
	}
	return handlerFunc(rt.serveStreamable)
}

// SSE returns the handler for /sse.
func (rt *Router) SSE() http.Handler {
	return handlerFunc(rt.serveSSE)
}

// Messages returns the handler for the event-stream message endpoint.
func (rt *Router) Messages() http.Handler {
	return handlerFunc(rt.serveMessages)
}

func (rt *Router) serveStreamable(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodPost:
		return rt.postStreamable(w, r)
	case http.MethodGet, http.MethodDelete:
		h, ok := rt.lookupStreamable(r.Header.Get(transport.HeaderSessionID))
		if !ok {
			rt.observer.RoutingRejected(session.BindingStreamable, ReasonNoValidSession)
			writeEmptyError(w)
			return nil
		}
		if r.Method == http.MethodDelete {
			logging.Info("Router", "Terminating streamable session %s", logging.TruncateSessionID(h.SessionID()))
			h.Terminate(w)
			return nil
		}
		return h.ServeStream(w, r)
	default:
		rt.methodNotAllowed(w, session.BindingStreamable, "GET, POST, DELETE")
		return nil
	}
}

func (rt *Router) postStreamable(w http.ResponseWriter, r *http.Request) error {
	body, ok := rt.readBody(w, r, session.BindingStreamable)
	if !ok {
		return nil
	}

	if id := r.Header.Get(transport.HeaderSessionID); id != "" {
		if h, ok := rt.lookupStreamable(id); ok {
			return h.HandleRequest(w, r, body)
		}
	} else if transport.IsInitializeRequest(body) {
		h, err := rt.openStreamable(r.Context())
		if err != nil {
			return rt.openFailed(w, session.BindingStreamable, err)
		}
		logging.Info("Router", "Opened streamable session %s", logging.TruncateSessionID(h.SessionID()))
		return h.HandleRequest(w, r, body)
	}

	rt.observer.RoutingRejected(session.BindingStreamable, ReasonNoValidSession)
	transport.WriteError(w, http.StatusBadRequest, transport.CodeServerError, "Bad request: no valid session ID provided")
	return nil
}

func (rt *Router) openStreamable(ctx context.Context) (*transport.StreamableHandle, error) {
	id := rt.store.CreateSession()
	h := transport.NewStreamableHandle(id, rt.engine, transport.StreamableOptions{
		StreamTimeout:      rt.opts.SSE.WriteTimeout,
		NotificationBuffer: rt.opts.SSE.NotificationBuffer,
	})
	if err := rt.register(ctx, session.BindingStreamable, id, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (rt *Router) serveStateless(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		rt.observer.RoutingRejected(session.BindingStreamable, ReasonMethodNotAllowed)
		transport.WriteError(w, http.StatusMethodNotAllowed, transport.CodeServerError, "Method not allowed.")
		return nil
	}

	body, ok := rt.readBody(w, r, session.BindingStreamable)
	if !ok {
		return nil
	}

	h := transport.NewStreamableHandle(rt.store.CreateSession(), rt.engine, transport.StreamableOptions{Stateless: true})
	defer h.Close()
	return h.HandleRequest(w, r, body)
}

func (rt *Router) serveSSE(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		rt.methodNotAllowed(w, session.BindingSSE, "GET")
		return nil
	}

	id := rt.store.CreateSession()
	h := transport.NewSSEHandle(id, rt.engine, rt.opts.SSE)
	if err := rt.register(r.Context(), session.BindingSSE, id, h); err != nil {
		return rt.openFailed(w, session.BindingSSE, err)
	}

	logging.Info("Router", "Opened event stream session %s", logging.TruncateSessionID(id))
	return h.Serve(w, r)
}

func (rt *Router) serveMessages(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		rt.methodNotAllowed(w, session.BindingSSE, "POST")
		return nil
	}

	h, ok := rt.lookupSSE(r.URL.Query().Get("sessionId"))
	if !ok {
		rt.noTransport(w)
		return nil
	}

	body, ok := rt.readBody(w, r, session.BindingSSE)
	if !ok {
		return nil
	}

	err := h.HandlePostMessage(w, r, body)
	if errors.Is(err, transport.ErrHandleClosed) {
		rt.noTransport(w)
		return nil
	}
	return err
}

// connectable is a handle that can be wired to the store and the engine.
type connectable interface {
	session.Handle
	OnClose(fn func())
	Connect(ctx context.Context) error
}

// register makes h routable and connects it to the engine. The store entry is
// removed again when h closes.
func (rt *Router) register(ctx context.Context, b session.Binding, id string, h connectable) error {
	if err := rt.store.Register(b, id, h); err != nil {
		return err
	}
	h.OnClose(func() { rt.store.Remove(b, id) })

	if err := h.Connect(ctx); err != nil {
		_ = h.Close()
		return fmt.Errorf("connect %s session to engine: %w", b, err)
	}
	return nil
}

func (rt *Router) openFailed(w http.ResponseWriter, b session.Binding, err error) error {
	var limitErr *session.SessionLimitExceededError
	if errors.As(err, &limitErr) {
		logging.Warn("Router", "Rejecting new %s session: %v", b, err)
		rt.observer.RoutingRejected(b, ReasonSessionLimit)
		transport.WriteError(w, http.StatusServiceUnavailable, transport.CodeServerError, "Service unavailable: too many sessions")
		return nil
	}
	return fmt.Errorf("open %s session: %w", b, err)
}

func (rt *Router) lookupStreamable(id string) (*transport.StreamableHandle, bool) {
	if id == "" {
		return nil, false
	}
	h, ok := rt.store.Lookup(session.BindingStreamable, id)
	if !ok {
		return nil, false
	}
	sh, ok := h.(*transport.StreamableHandle)
	return sh, ok
}

func (rt *Router) lookupSSE(id string) (*transport.SSEHandle, bool) {
	if id == "" {
		return nil, false
	}
	h, ok := rt.store.Lookup(session.BindingSSE, id)
	if !ok {
		return nil, false
	}
	sh, ok := h.(*transport.SSEHandle)
	return sh, ok
}

func (rt *Router) readBody(w http.ResponseWriter, r *http.Request, b session.Binding) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.opts.MaxBodyBytes))
	if err == nil {
		return body, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rt.observer.RoutingRejected(b, ReasonBodyTooLarge)
		transport.WriteError(w, http.StatusRequestEntityTooLarge, transport.CodeInvalidRequest, "Request body too large")
		return nil, false
	}
	transport.WriteError(w, http.StatusBadRequest, transport.CodeParseError, "Parse error: failed to read body")
	return nil, false
}

func (rt *Router) methodNotAllowed(w http.ResponseWriter, b session.Binding, allow string) {
	rt.observer.RoutingRejected(b, ReasonMethodNotAllowed)
	w.Header().Set("Allow", allow)
	transport.WriteError(w, http.StatusMethodNotAllowed, transport.CodeServerError, "Method not allowed.")
}

func (rt *Router) noTransport(w http.ResponseWriter) {
	rt.observer.RoutingRejected(session.BindingSSE, ReasonNoValidSession)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte("No transport found for sessionId"))
}

func writeEmptyError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{}}`))
}
