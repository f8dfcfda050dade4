package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Engine is the protocol engine a handle feeds messages into.
// *server.MCPServer satisfies it.
type Engine interface {
	RegisterSession(ctx context.Context, session server.ClientSession) error
	UnregisterSession(ctx context.Context, sessionID string)
	WithContext(ctx context.Context, session server.ClientSession) context.Context
	HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage
}

var _ Engine = (*server.MCPServer)(nil)

// ErrHandleClosed is returned when a message reaches a handle after Close.
var ErrHandleClosed = errors.New("session handle closed")
