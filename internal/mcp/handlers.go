package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ctagard/gdb-mcp/internal/errors"
	"github.com/ctagard/gdb-mcp/internal/gdbmi"
	"github.com/ctagard/gdb-mcp/internal/response"
)

const (
	msgDisconnected = "Disconnected and GDB process terminated."
	msgNoSession    = "No active session to disconnect."
)

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := request.RequireString("target")
	if err != nil || target == "" {
		return errorResult(errors.MissingParameter("target",
			"Pass the gdbserver address as host:port, e.g. 'localhost:1234'."), nil), nil
	}

	records, err := s.sessions.Connect(ctx, target)
	if err != nil {
		return errorResult(err, records), nil
	}
	return recordsResult(records), nil
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := msgNoSession
	if s.sessions.Disconnect() {
		message = msgDisconnected
	}

	out := gdbmi.NewTuple()
	out.Set("status", "ok")
	out.Set("message", message)
	return mcp.NewToolResultText(response.Serialize(out)), nil
}

func (s *Server) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := request.RequireString("command")
	if err != nil || command == "" {
		return errorResult(errors.MissingParameter("command",
			"Pass a GDB/MI command such as '-exec-continue' or '-stack-list-frames'."), nil), nil
	}
	waitForDone := request.GetBool("wait_for_done", true)

	records, err := s.sessions.Command(ctx, command, waitForDone)
	if err != nil {
		s.log.Debug().Err(err).Str("command", command).Msg("command failed")
		return errorResult(err, records), nil
	}
	return recordsResult(records), nil
}

// recordsResult renders {result:[...]}
func recordsResult(records []gdbmi.Record) *mcp.CallToolResult {
	if records == nil {
		records = []gdbmi.Record{}
	}
	out := gdbmi.NewTuple()
	out.Set("result", records)
	return mcp.NewToolResultText(response.Serialize(out))
}

// errorResult renders {status:"error",message,...}. GDB errors carry the
// records that produced them; other failures carry a hint, plus any partial
// records that were collected.
func errorResult(err error, records []gdbmi.Record) *mcp.CallToolResult {
	de := errors.FromError(err)

	out := gdbmi.NewTuple()
	out.Set("status", "error")
	out.Set("message", de.Message)
	if de.Hint != "" {
		out.Set("hint", de.Hint)
	}
	if records != nil || de.Code == errors.CodeGDBError {
		if records == nil {
			records = []gdbmi.Record{}
		}
		out.Set("result", records)
	}
	return mcp.NewToolResultError(response.Serialize(out))
}
