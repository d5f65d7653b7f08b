// Package mcp provides the Model Context Protocol (MCP) server implementation.
//
// This package exposes a single GDB session through three MCP tools:
//
//   - connect: Start GDB and select a remote target (host:port)
//   - disconnect: Terminate the active session
//   - command: Send a raw GDB/MI command to the active session
//
// Every tool returns one compact object-literal string with hexadecimal
// addresses shortened.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ctagard/gdb-mcp/internal/session"
	"github.com/ctagard/gdb-mcp/internal/version"
)

const instructions = `This server drives one GDB session over the machine interface (MI).

Use connect with the address of a running gdbserver (e.g. "localhost:1234").
Connecting again replaces the current session.

Use command to send raw MI commands such as "-break-insert main",
"-exec-continue" or "-data-evaluate-expression x". Set wait_for_done=false for
commands that leave the target running; the reply then holds whatever output
arrived shortly after sending.

Use disconnect when finished.`

// Server wraps the MCP server with the GDB session manager
type Server struct {
	mcpServer *server.MCPServer
	sessions  *session.Manager
	log       zerolog.Logger
}

// NewServer creates a new GDB-MCP server around the given session manager
func NewServer(sessions *session.Manager, logger zerolog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"gdb-mcp",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s := &Server{
		mcpServer: mcpServer,
		sessions:  sessions,
		log:       logger,
	}

	s.registerTools()

	return s
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the server and any active session
func (s *Server) Close() {
	s.sessions.Close()
}
