package persistence

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type postgresFilmRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresFilmRepo(db *pgxpool.Pool, log logger.Logger) film.Repository {
	return &postgresFilmRepo{db: db, logger: log}
}

var filmColumns = []string{
	"id", "owner_id", "title", "description", "film_type", "price_cents", "currency",
	"visibility", "content_key", "thumbnail_public_id", "thumbnail_url",
	"published_at", "created_at", "updated_at",
}

func scanFilm(row pgx.Row) (*film.Film, error) {
	f := &film.Film{}
	err := row.Scan(
		&f.ID, &f.OwnerID, &f.Title, &f.Description, &f.FilmType, &f.PriceCents, &f.Currency,
		&f.Visibility, &f.ContentKey, &f.ThumbnailPublicID, &f.ThumbnailURL,
		&f.PublishedAt, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("film", "")
		}
		return nil, apperror.NewInternal("failed to scan film row", err)
	}
	return f, nil
}

func scanFilms(rows pgx.Rows) ([]*film.Film, error) {
	defer rows.Close()
	films := make([]*film.Film, 0)
	for rows.Next() {
		f, err := scanFilm(rows)
		if err != nil {
			return nil, err
		}
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating film rows", err)
	}
	return films, nil
}

func (r *postgresFilmRepo) Save(ctx context.Context, f *film.Film) error {
	sql, args, err := psql.Insert("films").
		Columns(filmColumns...).
		Values(
			f.ID, f.OwnerID, f.Title, f.Description, f.FilmType, f.PriceCents, f.Currency,
			f.Visibility, f.ContentKey, f.ThumbnailPublicID, f.ThumbnailURL,
			f.PublishedAt, f.CreatedAt, f.UpdatedAt,
		).ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build insert film query", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return apperror.NewInternal("failed to insert film", err)
	}
	return nil
}

func (r *postgresFilmRepo) Update(ctx context.Context, f *film.Film) error {
	query := `
		UPDATE films SET
			title = $2, description = $3, film_type = $4, price_cents = $5,
			visibility = $6, thumbnail_public_id = $7, thumbnail_url = $8,
			published_at = $9, updated_at = NOW()
		WHERE id = $1
	`
	cmdTag, err := r.db.Exec(ctx, query,
		f.ID, f.Title, f.Description, f.FilmType, f.PriceCents,
		f.Visibility, f.ThumbnailPublicID, f.ThumbnailURL, f.PublishedAt,
	)
	if err != nil {
		return apperror.NewInternal("failed to update film", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("film", f.ID.String())
	}
	return nil
}

func (r *postgresFilmRepo) FindByID(ctx context.Context, id uuid.UUID) (*film.Film, error) {
	sql, args, err := psql.Select(filmColumns...).From("films").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find film query", err)
	}
	f, err := scanFilm(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NewNotFound("film", id.String())
	}
	return f, err
}

func (r *postgresFilmRepo) ListPublished(ctx context.Context, limit, offset int) ([]*film.Film, error) {
	builder := psql.Select(filmColumns...).
		From("films").
		Where(sq.Eq{"visibility": film.VisibilityPublished}).
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list published films query", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query published films", err)
	}
	return scanFilms(rows)
}

func (r *postgresFilmRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*film.Film, error) {
	builder := psql.Select(filmColumns...).
		From("films").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list films by owner query", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query films by owner", err)
	}
	return scanFilms(rows)
}
