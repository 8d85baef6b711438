// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the protocol tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/minutes"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/render"
	"github.com/protokoll/minutes/internal/store"
)

const syntaxURI = "minutes://syntax"

// Service is the part of the minutes service the tools use.
type Service interface {
	Meeting(ctx context.Context, id int64) (*minutes.MeetingDetail, error)
	DryRun(ctx context.Context, req minutes.DryRunRequest) (*minutes.DryRunResult, error)
	Artifact(ctx context.Context, meetingID int64, f render.Format, v render.Visibility) (*store.Artifact, error)
	ActionItems(ctx context.Context, seriesID int64, openOnly bool) ([]models.ActionItem, error)
	SearchDecisions(ctx context.Context, seriesID int64, query string, limit int) ([]store.SearchResult, error)
}

var _ Service = (*minutes.Service)(nil)

// Server wraps the MCP server with the protocol tools.
type Server struct {
	mcp *server.MCPServer
	svc Service
}

// New creates a new MCP server with all tools registered.
func New(svc Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Minutes",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("check_protocol",
		mcp.WithDescription("Parse and compile a protocol source against a series without saving anything. "+
			"Returns the first fatal diagnostic with source context, or the parsed structure and warnings. "+
			"Read the syntax via get_syntax_contract or the "+syntaxURI+" resource first."),
		mcp.WithNumber("series_id", mcp.Required(), mcp.Description("Series the protocol belongs to")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Protocol source text")),
		mcp.WithString("format", mcp.Description("Optional output format to render"),
			mcp.Enum(formatNames()...)),
	), s.checkProtocol)

	s.mcp.AddTool(mcp.NewTool("read_protocol",
		mcp.WithDescription("Read the stored protocol source of a meeting."),
		mcp.WithNumber("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	), s.readProtocol)

	s.mcp.AddTool(mcp.NewTool("render_meeting",
		mcp.WithDescription("Return the render of the last successful parse of a meeting."),
		mcp.WithNumber("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
		mcp.WithString("format", mcp.Required(), mcp.Description("Output format"), mcp.Enum(formatNames()...)),
		mcp.WithBoolean("internal", mcp.Description("Include internal sections and todos")),
	), s.renderMeeting)

	s.mcp.AddTool(mcp.NewTool("list_action_items",
		mcp.WithDescription("List the action items of a series with number, owner, state and meetings."),
		mcp.WithNumber("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithBoolean("open_only", mcp.Description("Only items that are not finished")),
	), s.listActionItems)

	s.mcp.AddTool(mcp.NewTool("search_decisions",
		mcp.WithDescription("Full-text search through the decisions of a series."),
		mcp.WithNumber("series_id", mcp.Required(), mcp.Description("Series ID")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDecisions)

	s.mcp.AddTool(mcp.NewTool("get_syntax_contract",
		mcp.WithDescription("Returns the protocol source format. "+
			"Call this before writing or fixing protocols."),
	), s.getSyntaxContract)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Protocol Syntax",
			mcp.WithResourceDescription("Source format every meeting protocol must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func formatNames() []string {
	out := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		out[i] = string(f)
	}
	return out
}

func (s *Server) checkProtocol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireInt("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dr := minutes.DryRunRequest{SeriesID: int64(seriesID), Source: source, Visibility: render.Internal}
	if name := req.GetString("format", ""); name != "" {
		if dr.Format, err = render.ParseFormat(name); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	res, err := s.svc.DryRun(ctx, dr)
	if err != nil {
		if d, ok := diag.As(err); ok {
			return mcp.NewToolResultError(describeDiagnostic(d)), nil
		}
		return toolError(err), nil
	}

	var b strings.Builder
	b.WriteString("ok\n\n")
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w.Error())
	}
	fmt.Fprintf(&b, "agenda items: %d, action items: %d, decisions: %d\n\n",
		len(res.Agenda), len(res.ActionItems), len(res.Decisions))
	b.WriteString(res.Dump)
	if res.Rendered != "" {
		b.WriteString("\n")
		b.WriteString(res.Rendered)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func describeDiagnostic(d *diag.Diagnostic) string {
	var b strings.Builder
	b.WriteString(d.Error())
	if d.Context != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Context)
	}
	if d.Tree != "" {
		b.WriteString("\nparsed so far:\n")
		b.WriteString(d.Tree)
	}
	return b.String()
}

func (s *Server) readProtocol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.Meeting(ctx, int64(id))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(m.Source), nil
}

func (s *Server) renderMeeting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := render.ParseFormat(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v := render.Public
	if req.GetBool("internal", false) {
		v = render.Internal
	}
	a, err := s.svc.Artifact(ctx, int64(id), f, v)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("meeting %d has no %s render; parse it first", id, f)), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(a.Content), nil
}

func (s *Server) listActionItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireInt("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ActionItems(ctx, int64(seriesID), req.GetBool("open_only", false))
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchDecisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := req.RequireInt("series_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchDecisions(ctx, int64(seriesID), query, 20)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSyntaxContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SyntaxContract), nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxContract,
		},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}
