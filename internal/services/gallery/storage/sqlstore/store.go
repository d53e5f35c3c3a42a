// Package sqlstore implements poster storage over a SQLite-dialect
// database/sql handle. The local SQLite and remote libSQL stores share it.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zyrr/gallery/internal/platform/otel"
	"github.com/zyrr/gallery/internal/platform/storage/sqlitemigrate"
	"github.com/zyrr/gallery/internal/services/gallery/domain"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
	"github.com/zyrr/gallery/internal/services/gallery/storage/migrations"
)

const posterColumns = `id, slug, title, subtitle, description, previewImage,
	leftImage, centerImage, rightImage, price, width, height, unit, medium,
	year, edition, availability, aspectRatio, colorPalette, mood, technique,
	variants`

var tracer = otel.Tracer("services/gallery/storage/sqlstore")

// Options customises a Store.
type Options struct {
	// Kind tags spans and errors with the store flavor.
	Kind storage.Kind
	// IsUniqueViolation classifies driver errors as unique constraint
	// failures. When nil a message match is used.
	IsUniqueViolation func(error) bool
	// Now supplies created_at timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Store persists posters in a SQL database.
type Store struct {
	sqlDB    *sql.DB
	kind     storage.Kind
	isUnique func(error) bool
	now      func() time.Time
}

// Open applies the poster migrations to sqlDB and wraps it. The Store owns
// sqlDB from then on.
func Open(ctx context.Context, sqlDB *sql.DB, opts Options) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{
		sqlDB:    sqlDB,
		kind:     opts.Kind,
		isUnique: opts.IsUniqueViolation,
		now:      opts.Now,
	}
	if s.isUnique == nil {
		s.isUnique = IsUniqueViolationMessage
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Close closes the SQL handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ListPosters returns every poster, newest first.
func (s *Store) ListPosters(ctx context.Context) (_ []domain.Poster, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	ctx, span := s.startSpan(ctx, "ListPosters")
	defer func() { endSpan(span, err) }()

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+posterColumns+`
		   FROM posters
		  ORDER BY created_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list posters: %w", err)
	}
	defer rows.Close()

	posters := make([]domain.Poster, 0)
	for rows.Next() {
		poster, err := scanPoster(rows)
		if err != nil {
			return nil, fmt.Errorf("list posters: %w", err)
		}
		posters = append(posters, poster)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posters: %w", err)
	}
	span.SetAttributes(attribute.Int("gallery.posters.count", len(posters)))
	return posters, nil
}

// GetPosterBySlug returns one poster by slug.
func (s *Store) GetPosterBySlug(ctx context.Context, slug string) (_ domain.Poster, err error) {
	if err := ctx.Err(); err != nil {
		return domain.Poster{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Poster{}, fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Poster{}, storage.ErrNotFound
	}
	ctx, span := s.startSpan(ctx, "GetPosterBySlug", attribute.String("gallery.poster.slug", slug))
	defer func() { endSpan(span, err) }()

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+posterColumns+`
		   FROM posters
		  WHERE slug = ?
		  LIMIT 1`,
		slug,
	)
	poster, err := scanPoster(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Poster{}, storage.ErrNotFound
		}
		return domain.Poster{}, fmt.Errorf("get poster by slug: %w", err)
	}
	return poster, nil
}

// CreatePoster inserts one poster.
func (s *Store) CreatePoster(ctx context.Context, poster domain.Poster) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	poster.Normalize()
	if err := domain.Validate(poster); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "CreatePoster", attribute.String("gallery.poster.slug", poster.Slug))
	defer func() { endSpan(span, err) }()

	var palette, variants sql.NullString
	if poster.Metadata != nil && poster.Metadata.ColorPalette != nil {
		encoded, err := json.Marshal(poster.Metadata.ColorPalette)
		if err != nil {
			return fmt.Errorf("encode color palette: %w", err)
		}
		palette = sql.NullString{String: string(encoded), Valid: true}
	}
	if len(poster.Variants) > 0 {
		encoded, err := json.Marshal(poster.Variants)
		if err != nil {
			return fmt.Errorf("encode variants: %w", err)
		}
		variants = sql.NullString{String: string(encoded), Valid: true}
	}

	var width, height sql.NullFloat64
	var unit sql.NullString
	if d := poster.Dimensions; d != nil {
		width = sql.NullFloat64{Float64: d.Width, Valid: true}
		height = sql.NullFloat64{Float64: d.Height, Valid: true}
		unit = nullString(d.Unit)
	}
	var aspectRatio, mood, technique sql.NullString
	if m := poster.Metadata; m != nil {
		aspectRatio = nullString(m.AspectRatio)
		mood = nullString(m.Mood)
		technique = nullString(m.Technique)
	}
	var year sql.NullInt64
	if poster.Year != 0 {
		year = sql.NullInt64{Int64: int64(poster.Year), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO posters (
		   id, slug, title, subtitle, description, previewImage,
		   leftImage, centerImage, rightImage, price, width, height, unit,
		   medium, year, edition, availability, aspectRatio, colorPalette,
		   mood, technique, variants, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		poster.ID,
		poster.Slug,
		poster.Title,
		nullString(poster.Subtitle),
		nullString(poster.Description),
		poster.PreviewImage,
		poster.PanelImages.Left,
		poster.PanelImages.Center,
		poster.PanelImages.Right,
		poster.Price,
		width,
		height,
		unit,
		nullString(poster.Medium),
		year,
		nullString(poster.Edition),
		string(poster.Availability),
		aspectRatio,
		palette,
		mood,
		technique,
		variants,
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		if s.isUnique(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create poster: %w", err)
	}
	return nil
}

// CountPosters returns the number of stored posters.
func (s *Store) CountPosters(ctx context.Context) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posters: %w", err)
	}
	return count, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoster(row rowScanner) (domain.Poster, error) {
	var (
		p                                      domain.Poster
		subtitle, description, unit, medium    sql.NullString
		edition, availability, aspectRatio     sql.NullString
		palette, mood, technique, variantsJSON sql.NullString
		width, height                          sql.NullFloat64
		year                                   sql.NullInt64
	)
	if err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&subtitle,
		&description,
		&p.PreviewImage,
		&p.PanelImages.Left,
		&p.PanelImages.Center,
		&p.PanelImages.Right,
		&p.Price,
		&width,
		&height,
		&unit,
		&medium,
		&year,
		&edition,
		&availability,
		&aspectRatio,
		&palette,
		&mood,
		&technique,
		&variantsJSON,
	); err != nil {
		return domain.Poster{}, err
	}

	p.Subtitle = subtitle.String
	p.Description = description.String
	p.Medium = medium.String
	p.Edition = edition.String
	p.Year = int(year.Int64)
	p.Availability = domain.Availability(availability.String)
	if width.Valid || height.Valid || unit.Valid {
		p.Dimensions = &domain.Dimensions{Width: width.Float64, Height: height.Float64, Unit: unit.String}
	}
	if aspectRatio.Valid || palette.Valid || mood.Valid || technique.Valid {
		m := &domain.Metadata{
			AspectRatio: aspectRatio.String,
			Mood:        mood.String,
			Technique:   technique.String,
		}
		if palette.Valid && palette.String != "" {
			if err := json.Unmarshal([]byte(palette.String), &m.ColorPalette); err != nil {
				return domain.Poster{}, fmt.Errorf("decode color palette for %s: %w", p.Slug, err)
			}
		}
		p.Metadata = m
	}
	if variantsJSON.Valid && variantsJSON.String != "" {
		if err := json.Unmarshal([]byte(variantsJSON.String), &p.Variants); err != nil {
			return domain.Poster{}, fmt.Errorf("decode variants for %s: %w", p.Slug, err)
		}
	}
	return p, nil
}

// IsUniqueViolationMessage matches SQLite unique and primary key failures
// by message, for drivers that do not expose typed errors.
func IsUniqueViolationMessage(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "sqlite_constraint_primarykey") ||
		strings.Contains(message, "sqlite_constraint_unique")
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func (s *Store) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "sqlite"), attribute.String("gallery.store", string(s.kind)))
	return tracer.Start(ctx, "sqlstore."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var _ storage.PosterStore = (*Store)(nil)
