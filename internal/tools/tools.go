// Package tools defines the MCP server and the arithmetic tools it exposes.
package tools

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to clients during initialization.
const ServerName = "toolgate"

// NewServer creates the protocol engine with every tool registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	Register(s)
	return s
}

// Register adds the arithmetic tools to s.
func Register(s *server.MCPServer) {
	s.AddTool(binaryTool("add", "Add two numbers"), binaryHandler(func(l, r float64) float64 { return l + r }))
	s.AddTool(binaryTool("divide", "Divide two numbers"), binaryHandler(func(l, r float64) float64 { return l / r }))
}

func binaryTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithNumber("l",
			mcp.Required(),
			mcp.Description("Left operand"),
		),
		mcp.WithNumber("r",
			mcp.Required(),
			mcp.Description("Right operand"),
		),
	)
}

func binaryHandler(op func(l, r float64) float64) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		l, err := request.RequireFloat("l")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		r, err := request.RequireFloat("r")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(FormatNumber(op(l, r))), nil
	}
}

// FormatNumber renders v the way JavaScript's String(number) does, so
// division by zero yields "Infinity" and integral results have no fraction.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
