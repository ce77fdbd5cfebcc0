package persistence

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/logger"
)

type postgresPurchaseRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresPurchaseRepo(db *pgxpool.Pool, log logger.Logger) purchase.Repository {
	return &postgresPurchaseRepo{db: db, logger: log}
}

var purchaseColumns = []string{
	"id", "viewer_id", "film_id", "amount_cents", "currency", "instrument_ref",
	"processor_ref", "status", "failure_reason", "created_at", "updated_at", "settled_at",
}

var activeStatuses = []purchase.Status{purchase.StatusPending, purchase.StatusSettled}

func scanPurchase(row pgx.Row) (*purchase.Purchase, error) {
	p := &purchase.Purchase{}
	err := row.Scan(
		&p.ID, &p.ViewerID, &p.FilmID, &p.AmountCents, &p.Currency, &p.InstrumentRef,
		&p.ProcessorRef, &p.Status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt, &p.SettledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("purchase", "")
		}
		return nil, apperror.NewInternal("failed to scan purchase row", err)
	}
	return p, nil
}

func scanPurchases(rows pgx.Rows) ([]*purchase.Purchase, error) {
	defer rows.Close()
	purchases := make([]*purchase.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating purchase rows", err)
	}
	return purchases, nil
}

// CreatePending relies on the purchases_active_pair partial unique index, so
// concurrent replicas racing on the same pair get exactly one winner.
func (r *postgresPurchaseRepo) CreatePending(ctx context.Context, p *purchase.Purchase) (bool, error) {
	query := `
		INSERT INTO purchases (id, viewer_id, film_id, amount_cents, currency, instrument_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (viewer_id, film_id) WHERE status IN ('pending', 'settled') DO NOTHING
	`
	cmdTag, err := r.db.Exec(ctx, query,
		p.ID, p.ViewerID, p.FilmID, p.AmountCents, p.Currency, p.InstrumentRef,
		purchase.StatusPending, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, apperror.NewInternal("failed to insert pending purchase", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

func (r *postgresPurchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	sql, args, err := psql.Select(purchaseColumns...).From("purchases").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find purchase query", err)
	}
	return scanPurchase(r.db.QueryRow(ctx, sql, args...))
}

func (r *postgresPurchaseRepo) FindActive(ctx context.Context, viewerID, filmID uuid.UUID) (*purchase.Purchase, error) {
	sql, args, err := psql.Select(purchaseColumns...).
		From("purchases").
		Where(sq.Eq{"viewer_id": viewerID, "film_id": filmID, "status": activeStatuses}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build find active purchase query", err)
	}
	return scanPurchase(r.db.QueryRow(ctx, sql, args...))
}

func (r *postgresPurchaseRepo) HasSettled(ctx context.Context, viewerID, filmID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE viewer_id = $1 AND film_id = $2 AND status = 'settled'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, viewerID, filmID).Scan(&exists); err != nil {
		return false, apperror.NewInternal("failed to check settled purchase", err)
	}
	return exists, nil
}

func (r *postgresPurchaseRepo) AttachProcessorRef(ctx context.Context, id uuid.UUID, processorRef string) error {
	query := `
		UPDATE purchases SET processor_ref = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	cmdTag, err := r.db.Exec(ctx, query, id, processorRef)
	if err != nil {
		return apperror.NewInternal("failed to attach processor reference", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.transitionMiss(ctx, id)
	}
	return nil
}

func (r *postgresPurchaseRepo) MarkSettled(ctx context.Context, id uuid.UUID, processorRef string, at time.Time) error {
	query := `
		UPDATE purchases SET
			status = 'settled',
			processor_ref = COALESCE(NULLIF($2, ''), processor_ref),
			settled_at = $3,
			updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	cmdTag, err := r.db.Exec(ctx, query, id, processorRef, at)
	if err != nil {
		return apperror.NewInternal("failed to settle purchase", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.transitionMiss(ctx, id)
	}
	return nil
}

func (r *postgresPurchaseRepo) MarkFailed(ctx context.Context, id uuid.UUID, processorRef, reason string, at time.Time) error {
	query := `
		UPDATE purchases SET
			status = 'failed',
			processor_ref = COALESCE(NULLIF($2, ''), processor_ref),
			failure_reason = $3,
			updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	cmdTag, err := r.db.Exec(ctx, query, id, processorRef, reason, at)
	if err != nil {
		return apperror.NewInternal("failed to fail purchase", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.transitionMiss(ctx, id)
	}
	return nil
}

// transitionMiss tells a missing row apart from one that already left pending.
func (r *postgresPurchaseRepo) transitionMiss(ctx context.Context, id uuid.UUID) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return purchase.ErrNotPending
}

func (r *postgresPurchaseRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*purchase.Purchase, error) {
	sql, args, err := psql.Select(purchaseColumns...).
		From("purchases").
		Where(sq.Eq{"status": purchase.StatusPending}).
		Where(sq.Lt{"created_at": before}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list pending purchases query", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query pending purchases", err)
	}
	return scanPurchases(rows)
}

func (r *postgresPurchaseRepo) ListByViewer(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*purchase.Purchase, error) {
	sql, args, err := psql.Select(purchaseColumns...).
		From("purchases").
		Where(sq.Eq{"viewer_id": viewerID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list purchases query", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query purchases", err)
	}
	return scanPurchases(rows)
}
