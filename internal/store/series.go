package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/protokoll/minutes/internal/apperr"
	"github.com/protokoll/minutes/internal/models"
)

// CreateSeries inserts a series and assigns its ID.
func (r *Repo) CreateSeries(ctx context.Context, s *models.Series) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO series (name, short_name) VALUES (?, ?)`, s.Name, s.ShortName)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: create series %q: %w", s.ShortName, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create series: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// ListSeries returns all series ordered by name.
func (r *Repo) ListSeries(ctx context.Context) ([]models.Series, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, short_name FROM series ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list series: %w", err)
	}
	defer rows.Close()

	var out []models.Series
	for rows.Next() {
		var s models.Series
		if err := rows.Scan(&s.ID, &s.Name, &s.ShortName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSeries returns one series or apperr.ErrNotFound.
func (r *Repo) GetSeries(ctx context.Context, id int64) (*models.Series, error) {
	return r.scanSeries(r.q.QueryRowContext(ctx, `SELECT id, name, short_name FROM series WHERE id = ?`, id))
}

// SeriesByShortName returns the series with the given short name or apperr.ErrNotFound.
func (r *Repo) SeriesByShortName(ctx context.Context, shortName string) (*models.Series, error) {
	return r.scanSeries(r.q.QueryRowContext(ctx, `SELECT id, name, short_name FROM series WHERE short_name = ?`, shortName))
}

func (r *Repo) scanSeries(row *sql.Row) (*models.Series, error) {
	var s models.Series
	if err := row.Scan(&s.ID, &s.Name, &s.ShortName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get series: %w", err)
	}
	return &s, nil
}

// AddCategory declares a decision category for a series.
func (r *Repo) AddCategory(ctx context.Context, c *models.Category) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO categories (series_id, name) VALUES (?, ?)`, c.SeriesID, c.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: add category %q: %w", c.Name, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: add category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// LookupCategory finds a category by name, ignoring case. It returns nil when there is none.
func (r *Repo) LookupCategory(ctx context.Context, seriesID int64, name string) (*models.Category, error) {
	var c models.Category
	err := r.q.QueryRowContext(ctx,
		`SELECT id, series_id, name FROM categories WHERE series_id = ? AND name = ? COLLATE NOCASE`,
		seriesID, strings.TrimSpace(name)).Scan(&c.ID, &c.SeriesID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: lookup category: %w", err)
	}
	return &c, nil
}

// ListCategories returns the categories of a series ordered by name.
func (r *Repo) ListCategories(ctx context.Context, seriesID int64) ([]models.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, series_id, name FROM categories WHERE series_id = ? ORDER BY name`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("store: list categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.SeriesID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddMetaField declares a meta remark every protocol of the series must carry.
func (r *Repo) AddMetaField(ctx context.Context, f *models.MetaField) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO meta_fields (series_id, key, name, default_value, internal) VALUES (?, ?, ?, ?, ?)`,
		f.SeriesID, f.Key, f.Name, f.Default, f.Internal)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: add meta field %q: %w", f.Key, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: add meta field: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}

// MetaDefaults returns the declared meta fields of a series in declaration order.
func (r *Repo) MetaDefaults(ctx context.Context, seriesID int64) ([]models.MetaField, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, series_id, key, name, default_value, internal FROM meta_fields WHERE series_id = ? ORDER BY id`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("store: meta defaults: %w", err)
	}
	defer rows.Close()

	var out []models.MetaField
	for rows.Next() {
		var f models.MetaField
		if err := rows.Scan(&f.ID, &f.SeriesID, &f.Key, &f.Name, &f.Default, &f.Internal); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
