package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/protokoll/minutes/internal/minutes"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/semantic"
	"github.com/protokoll/minutes/internal/testutil"
)

const protocol = `#Datum;01.03.2024
#Beginn;18:00
#Ende;20:00
TOP Begrüßung {
  Es wird begrüßt.;
  [beschluss;Die Kaffeemaschine wird repariert.;Finanzen];
}
TOP Intern {
  [todo;Alice;Kaffeemaschine reparieren;offen];
}
`

func testServer(t *testing.T) (*Server, *minutes.Service, *models.Series) {
	t.Helper()
	db := testutil.TestDB(t)
	_, vault := testutil.TestVault(t)
	series := testutil.TestSeries(t, db, "plenum", "Finanzen")
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := minutes.NewService(db, vault, nil, minutes.Options{Semantic: semantic.DefaultOptions()}, logger)
	return New(svc), svc, series
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "check_protocol":
		result, err = srv.checkProtocol(ctx, req)
	case "read_protocol":
		result, err = srv.readProtocol(ctx, req)
	case "render_meeting":
		result, err = srv.renderMeeting(ctx, req)
	case "list_action_items":
		result, err = srv.listActionItems(ctx, req)
	case "search_decisions":
		result, err = srv.searchDecisions(ctx, req)
	case "get_syntax_contract":
		result, err = srv.getSyntaxContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func parsedMeeting(t *testing.T, svc *minutes.Service, series *models.Series) *models.Meeting {
	t.Helper()
	ctx := context.Background()
	m := &models.Meeting{SeriesID: series.ID, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Source: protocol}
	if err := svc.CreateMeeting(ctx, m); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Parse(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCheckProtocol(t *testing.T) {
	srv, _, series := testServer(t)

	r := callTool(t, srv, "check_protocol", map[string]interface{}{
		"series_id": float64(series.ID),
		"source":    protocol,
		"format":    "wiki",
	})
	text := resultText(r)
	if r.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"decisions: 1", "fork: TOP 'Begrüßung'", "=== Begrüßung ==="} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestCheckProtocol_Diagnostic(t *testing.T) {
	srv, _, series := testServer(t)

	r := callTool(t, srv, "check_protocol", map[string]interface{}{
		"series_id": float64(series.ID),
		"source":    "#Datum;01.03.2024\nTOP x {\n  a;\n",
	})
	if !r.IsError {
		t.Fatalf("expected diagnostic, got %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "close a brace") {
		t.Errorf("diagnostic = : %s", resultText(r))
	}
}

func TestCheckProtocol_BadFormat(t *testing.T) {
	srv, _, series := testServer(t)
	r := callTool(t, srv, "check_protocol", map[string]interface{}{
		"series_id": float64(series.ID),
		"source":    protocol,
		"format":    "docx",
	})
	if !r.IsError {
		t.Error("expected error for unknown format")
	}
}

func TestReadAndRender(t *testing.T) {
	srv, svc, series := testServer(t)
	m := parsedMeeting(t, svc, series)

	r := callTool(t, srv, "read_protocol", map[string]interface{}{"meeting_id": float64(m.ID)})
	if resultText(r) != protocol {
		t.Errorf("read = %q", resultText(r))
	}

	r = callTool(t, srv, "render_meeting", map[string]interface{}{
		"meeting_id": float64(m.ID),
		"format":     "plaintext",
	})
	if strings.Contains(resultText(r), "Alice") {
		t.Errorf("public render leaks internal todo: %s", resultText(r))
	}

	r = callTool(t, srv, "render_meeting", map[string]interface{}{
		"meeting_id": float64(m.ID),
		"format":     "plaintext",
		"internal":   true,
	})
	if !strings.Contains(resultText(r), "Alice") {
		t.Errorf("internal render lacks todo: %s", resultText(r))
	}
}

func TestReadProtocolMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_protocol", map[string]interface{}{"meeting_id": float64(404)})
	if !r.IsError {
		t.Error("expected error for missing meeting")
	}
}

func TestListActionItemsAndSearch(t *testing.T) {
	srv, svc, series := testServer(t)
	parsedMeeting(t, svc, series)

	r := callTool(t, srv, "list_action_items", map[string]interface{}{
		"series_id": float64(series.ID),
		"open_only": true,
	})
	if !strings.Contains(resultText(r), "Kaffeemaschine reparieren") {
		t.Errorf("items = %s", resultText(r))
	}

	r = callTool(t, srv, "search_decisions", map[string]interface{}{
		"series_id": float64(series.ID),
		"query":     "Kaffeemaschine",
	})
	if !strings.Contains(resultText(r), "decision_id") {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestGetSyntaxContract(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_syntax_contract", nil))
	for _, want := range []string{"#Datum", "beschluss", "sitzung", "erledigt"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}
