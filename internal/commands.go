package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/diag"
	"github.com/protokoll/minutes/internal/mcpserver"
	"github.com/protokoll/minutes/internal/models"
	"github.com/protokoll/minutes/internal/render"
	"github.com/protokoll/minutes/internal/sources"
	"github.com/protokoll/minutes/internal/storage"
)

// LegacyManifest is the YAML file read by ImportLegacy.
type LegacyManifest struct {
	Series string                    `yaml:"series"`
	Items  []models.LegacyActionItem `yaml:"items"`
}

// ParseSource parses the vault file at rel (<series>/<YYYY-MM-DD>.txt),
// creating its meeting when missing, and writes a summary to w.
func ParseSource(ctx context.Context, rel string, w io.Writer, opts ...Option) error {
	c, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer c.Close()
	svc := c.service(nil)

	shortName, date, ok := storage.ParseSourcePath(rel)
	if !ok {
		return fmt.Errorf("parse: %q is not a protocol path", rel)
	}
	data, err := c.vault.Read(rel)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	m, err := svc.MeetingAt(ctx, shortName, date)
	if errors.Is(err, apperr.ErrNotFound) {
		series, serr := c.db.SeriesByShortName(ctx, shortName)
		if serr != nil {
			return fmt.Errorf("parse: series %q: %w", shortName, serr)
		}
		m = &models.Meeting{SeriesID: series.ID, Date: date}
		err = svc.CreateMeeting(ctx, m)
	}
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	res, err := svc.UpdateSource(ctx, m.ID, string(data), "")
	if err != nil {
		if d, ok := diag.As(err); ok {
			writeDiagnostic(w, rel, d)
		}
		return fmt.Errorf("parse: %w", err)
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "%s: warning: %s\n", rel, warn.Error())
	}
	fmt.Fprintf(w, "%s: ok (meeting %d, run %s): %d agenda items, %d action items, %d decisions, %d announced meetings\n",
		rel, m.ID, res.RunID, len(res.Agenda), len(res.ActionItems), len(res.Decisions), len(res.SubMeetings))
	return nil
}

func writeDiagnostic(w io.Writer, rel string, d *diag.Diagnostic) {
	fmt.Fprintf(w, "%s: %s\n", rel, d.Error())
	if d.Context != "" {
		fmt.Fprint(w, d.Context)
	}
}

// RenderSource writes the stored render of the vault file at rel to w.
func RenderSource(ctx context.Context, rel, format string, internal bool, w io.Writer, opts ...Option) error {
	f, err := render.ParseFormat(format)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	v := render.Public
	if internal {
		v = render.Internal
	}

	c, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer c.Close()
	svc := c.service(nil)

	shortName, date, ok := storage.ParseSourcePath(rel)
	if !ok {
		return fmt.Errorf("render: %q is not a protocol path", rel)
	}
	m, err := svc.MeetingAt(ctx, shortName, date)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	a, err := svc.Artifact(ctx, m.ID, f, v)
	if err != nil {
		return fmt.Errorf("render: %s %s: %w", f, v, err)
	}
	_, err = io.WriteString(w, a.Content)
	return err
}

// ImportLegacy loads the action items of a legacy manifest into the store.
func ImportLegacy(ctx context.Context, manifestPath string, w io.Writer, opts ...Option) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("import-legacy: %w", err)
	}
	var manifest LegacyManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("import-legacy: parse %s: %w", manifestPath, err)
	}
	if manifest.Series == "" {
		return fmt.Errorf("import-legacy: %s: series is required", manifestPath)
	}

	c, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.service(nil).ImportLegacy(ctx, manifest.Series, manifest.Items)
	if err != nil {
		return fmt.Errorf("import-legacy: %w", err)
	}
	fmt.Fprintf(w, "imported %d legacy action items into %s\n", n, manifest.Series)
	return nil
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	c, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer c.Close()

	svc := c.service(nil)
	if err := sources.Sync(ctx, svc, c.vault, c.logger); err != nil {
		c.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return mcpserver.New(svc).ServeStdio()
}
