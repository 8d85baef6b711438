package minutes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/checksum"
	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/render"
	"github.com/protokoll/minutes/internal/semantic"
	"github.com/protokoll/minutes/internal/sse"
	"github.com/protokoll/minutes/internal/storage"
	"github.com/protokoll/minutes/internal/store"
	"github.com/protokoll/minutes/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []sse.ProtocolEvent
}

func (r *recorder) PublishProtocolEvent(ev sse.ProtocolEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

type env struct {
	svc    *Service
	db     *store.DB
	vault  storage.Provider
	events *recorder
	series *models.Series
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.TestDB(t)
	_, vault := testutil.TestVault(t)
	series := testutil.TestSeries(t, db, "plenum", "Finanzen")
	events := &recorder{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(db, vault, events, Options{Semantic: semantic.DefaultOptions()}, logger)
	return &env{svc: svc, db: db, vault: vault, events: events, series: series}
}

func (e *env) meeting(t *testing.T, date time.Time, source string) *models.Meeting {
	t.Helper()
	m := &models.Meeting{SeriesID: e.series.ID, Date: date, Source: source}
	if err := e.svc.CreateMeeting(context.Background(), m); err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	return m
}

func day(d, m int) time.Time {
	return time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

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

func TestCreateMeeting_WritesVault(t *testing.T) {
	e := newEnv(t)
	e.meeting(t, day(1, 3), protocol)

	data, err := e.vault.Read("plenum/2024-03-01.txt")
	if err != nil || string(data) != protocol {
		t.Fatalf("vault = %q, %v", data, err)
	}

	err = e.svc.CreateMeeting(context.Background(), &models.Meeting{SeriesID: e.series.ID, Date: day(1, 3)})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
	err = e.svc.CreateMeeting(context.Background(), &models.Meeting{SeriesID: e.series.ID})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestParse_StoresArtifactsAndPublishes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.meeting(t, day(1, 3), protocol)

	res, err := e.svc.Parse(ctx, m.ID)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.RunID == "" || len(res.Decisions) != 1 || len(res.ActionItems) != 1 {
		t.Fatalf("result = %+v", res)
	}

	for _, v := range render.Visibilities {
		for _, f := range render.Formats {
			a, err := e.svc.Artifact(ctx, m.ID, f, v)
			if err != nil {
				t.Fatalf("artifact %s/%s: %v", f, v, err)
			}
			if a.RunID != res.RunID {
				t.Errorf("artifact %s/%s run = %s, want %s", f, v, a.RunID, res.RunID)
			}
		}
	}
	pub, _ := e.svc.Artifact(ctx, m.ID, render.FormatPlaintext, render.Public)
	internal, _ := e.svc.Artifact(ctx, m.ID, render.FormatPlaintext, render.Internal)
	if strings.Contains(pub.Content, "Alice") {
		t.Errorf("public render leaks internal section: %q", pub.Content)
	}
	if !strings.Contains(internal.Content, "Neuer Todo: Alice") {
		t.Errorf("internal render = %q", internal.Content)
	}

	detail, err := e.svc.Meeting(ctx, m.ID)
	if err != nil || !detail.Done || len(detail.Agenda) != 2 {
		t.Errorf("detail = %+v, %v", detail, err)
	}
	if got := e.events.kinds(); len(got) != 1 || got[0] != sse.KindParsed {
		t.Errorf("events = %v", got)
	}
}

func TestParse_FailureRecordsDiagnostic(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.meeting(t, day(8, 3), protocol)

	_, err := e.svc.Parse(ctx, m.ID)
	d, ok := diag.As(err)
	if !ok || d.Kind != diag.KindMeta {
		t.Fatalf("err = %v, want meta diagnostic", err)
	}

	ds, err := e.svc.Diagnostics(ctx, m.ID)
	if err != nil || len(ds) != 1 || ds[0].Kind != diag.KindMeta {
		t.Fatalf("diagnostics = %+v, %v", ds, err)
	}
	if items, _ := e.svc.ActionItems(ctx, e.series.ID, false); len(items) != 0 {
		t.Errorf("items = %+v", items)
	}
	if _, err := e.svc.Artifact(ctx, m.ID, render.FormatWiki, render.Public); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("artifact err = %v", err)
	}
	if got := e.events.kinds(); len(got) != 1 || got[0] != sse.KindFailed {
		t.Errorf("events = %v", got)
	}

	// A fixed source clears the diagnostic.
	fixed := strings.Replace(protocol, "01.03.2024", "08.03.2024", 1)
	if _, err := e.svc.UpdateSource(ctx, m.ID, fixed, ""); err != nil {
		t.Fatalf("UpdateSource: %v", err)
	}
	if ds, _ := e.svc.Diagnostics(ctx, m.ID); len(ds) != 0 {
		t.Errorf("diagnostics after fix = %+v", ds)
	}
}

func TestUpdateSource_IfMatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.meeting(t, day(1, 3), protocol)

	if _, err := e.svc.UpdateSource(ctx, m.ID, protocol, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	res, err := e.svc.UpdateSource(ctx, m.ID, protocol, checksum.Source(protocol))
	if err != nil || len(res.Decisions) != 1 {
		t.Fatalf("UpdateSource = %+v, %v", res, err)
	}
}

func TestIngest_ChecksumGated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.vault.Write("plenum/2024-03-01.txt", []byte(protocol)); err != nil {
		t.Fatal(err)
	}
	files, err := e.vault.List("")
	if err != nil || len(files) != 1 {
		t.Fatalf("List = %+v, %v", files, err)
	}

	parsed, err := e.svc.Ingest(ctx, files[0])
	if err != nil || !parsed {
		t.Fatalf("first ingest = %v, %v", parsed, err)
	}
	parsed, err = e.svc.Ingest(ctx, files[0])
	if err != nil || parsed {
		t.Errorf("second ingest = %v, %v, want skipped", parsed, err)
	}
	meetings, _ := e.svc.Meetings(ctx, e.series.ID)
	if len(meetings) != 1 || !meetings[0].Date.Equal(day(1, 3)) {
		t.Errorf("meetings = %+v", meetings)
	}

	_, err = e.svc.Ingest(ctx, storage.SourceFile{Path: "fsr/2024-03-01.txt", Series: "fsr", Date: day(1, 3)})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown series err = %v", err)
	}
}

func TestDryRun_RollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.DryRun(ctx, DryRunRequest{SeriesID: e.series.ID, Source: protocol, Format: render.FormatWiki})
	if err != nil {
		t.Fatalf("DryRun: %v", err)
	}
	if !strings.Contains(res.Dump, "fork: TOP 'Begrüßung'") || !strings.Contains(res.Rendered, "=== Begrüßung ===") {
		t.Errorf("result = %+v", res)
	}
	if meetings, _ := e.svc.Meetings(ctx, e.series.ID); len(meetings) != 0 {
		t.Errorf("dry run left meetings: %+v", meetings)
	}
	if items, _ := e.svc.ActionItems(ctx, e.series.ID, false); len(items) != 0 {
		t.Errorf("dry run left items: %+v", items)
	}

	_, err = e.svc.DryRun(ctx, DryRunRequest{SeriesID: e.series.ID, Source: "TOP x {\n"})
	if _, ok := diag.As(err); !ok {
		t.Errorf("err = %v, want diagnostic", err)
	}
}

func TestImportLegacy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	n, err := e.svc.ImportLegacy(ctx, "plenum", []models.LegacyActionItem{
		{Number: 17, Who: "Alice", Description: "Kaffeemaschine reparieren"},
	})
	if err != nil || n != 1 {
		t.Fatalf("ImportLegacy = %d, %v", n, err)
	}
	m := e.meeting(t, day(1, 3), protocol)
	res, err := e.svc.Parse(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.ActionItems[0].Number != 17 {
		t.Errorf("number = %d, want legacy 17", res.ActionItems[0].Number)
	}
}

func TestSearchDecisions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.meeting(t, day(1, 3), protocol)
	if _, err := e.svc.Parse(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	hits, err := e.svc.SearchDecisions(ctx, e.series.ID, "Kaffeemaschine", 10)
	if err != nil || len(hits) != 1 {
		t.Errorf("hits = %+v, %v", hits, err)
	}
	if hits, _ := e.svc.SearchDecisions(ctx, e.series.ID, "  ", 10); len(hits) != 0 {
		t.Errorf("blank query hits = %+v", hits)
	}
}

const followUp = `#Datum;08.03.2024
#Beginn;18:00
#Ende;19:00
TOP Intern {
  [todo;Bob;Kaffeemaschine entkalken;in Bearbeitung];
}
`

func TestMergeActionItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.meeting(t, day(1, 3), protocol)
	b := e.meeting(t, day(8, 3), followUp)
	for _, m := range []*models.Meeting{a, b} {
		if _, err := e.svc.Parse(ctx, m.ID); err != nil {
			t.Fatalf("Parse %d: %v", m.ID, err)
		}
	}

	if _, err := e.svc.MergeActionItems(ctx, e.series.ID, 1, 1); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("self merge err = %v, want invalid input", err)
	}
	if _, err := e.svc.MergeActionItems(ctx, e.series.ID, 1, 9); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown drop err = %v, want not found", err)
	}

	it, err := e.svc.MergeActionItems(ctx, e.series.ID, 1, 2)
	if err != nil {
		t.Fatalf("MergeActionItems: %v", err)
	}
	if it.Number != 1 || it.Who != "Alice" || it.State != models.StateInProgress {
		t.Errorf("merged = %+v", it)
	}
	if len(it.MeetingIDs) != 2 || it.MeetingIDs[0] != a.ID || it.MeetingIDs[1] != b.ID {
		t.Errorf("meetings = %v, want [%d %d]", it.MeetingIDs, a.ID, b.ID)
	}

	items, err := e.svc.ActionItems(ctx, e.series.ID, false)
	if err != nil || len(items) != 1 {
		t.Fatalf("items = %+v, %v", items, err)
	}
	alias, err := e.db.FindActionItemByNumber(ctx, e.series.ID, 2)
	if err != nil || alias == nil || alias.Number != 1 {
		t.Errorf("number 2 resolves to %+v, %v", alias, err)
	}
}

func TestMergeActionItems_KeepsFurtherState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, m := range []*models.Meeting{e.meeting(t, day(1, 3), protocol), e.meeting(t, day(8, 3), followUp)} {
		if _, err := e.svc.Parse(ctx, m.ID); err != nil {
			t.Fatal(err)
		}
	}
	// Keeping the in-progress item and dropping the open one leaves it in progress.
	it, err := e.svc.MergeActionItems(ctx, e.series.ID, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if it.Number != 2 || it.State != models.StateInProgress {
		t.Errorf("merged = %+v", it)
	}
}

func TestUpdateActionItem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	m := e.meeting(t, day(1, 3), protocol)
	if _, err := e.svc.Parse(ctx, m.ID); err != nil {
		t.Fatal(err)
	}

	after := models.StateAfter
	if _, err := e.svc.UpdateActionItem(ctx, e.series.ID, 1, ActionItemChange{State: &after}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("dated state without date err = %v, want invalid input", err)
	}
	if _, err := e.svc.UpdateActionItem(ctx, e.series.ID, 5, ActionItemChange{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown number err = %v, want not found", err)
	}

	when := day(15, 3)
	who := "Carol"
	it, err := e.svc.UpdateActionItem(ctx, e.series.ID, 1, ActionItemChange{Who: &who, State: &after, Date: &when})
	if err != nil {
		t.Fatalf("UpdateActionItem: %v", err)
	}
	if it.Who != "Carol" || it.Description != "Kaffeemaschine reparieren" || it.StateText() != "ab 15.03.2024" {
		t.Errorf("updated = %+v", it)
	}

	done := models.StateDone
	it, err = e.svc.UpdateActionItem(ctx, e.series.ID, 1, ActionItemChange{State: &done})
	if err != nil {
		t.Fatal(err)
	}
	if it.State != models.StateDone || !it.Date.IsZero() {
		t.Errorf("done = %+v, want cleared date", it)
	}
	open, _ := e.svc.ActionItems(ctx, e.series.ID, true)
	if len(open) != 0 {
		t.Errorf("open items = %+v", open)
	}
}
