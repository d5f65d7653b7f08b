package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the connect/disconnect/command API
func (s *Server) registerTools() {
	s.registerConnect()
	s.registerDisconnect()
	s.registerCommand()
}

func (s *Server) registerConnect() {
	tool := mcp.NewTool("connect",
		mcp.WithDescription("Start GDB and connect it to a remote target with '-target-select remote'. Any existing session is terminated first. Returns the MI records GDB produced."),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Address of the gdbserver or stub, e.g. 'localhost:1234'"),
		),
	)
	s.mcpServer.AddTool(tool, s.handleConnect)
}

func (s *Server) registerDisconnect() {
	tool := mcp.NewTool("disconnect",
		mcp.WithDescription("Terminate the active GDB session. Safe to call when no session is active."),
	)
	s.mcpServer.AddTool(tool, s.handleDisconnect)
}

func (s *Server) registerCommand() {
	tool := mcp.NewTool("command",
		mcp.WithDescription("Send a raw GDB/MI command (e.g. '-exec-continue', '-stack-list-frames') to the active session and return the MI records it produced. GDB errors are returned as records, not as tool errors."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The MI command to send"),
		),
		mcp.WithBoolean("wait_for_done",
			mcp.Description("Wait for the command's result record (default: true). Use false for commands that leave the target running."),
			mcp.DefaultBool(true),
		),
	)
	s.mcpServer.AddTool(tool, s.handleCommand)
}
