package mediaRepository

import (
	"SnapSight/internal/entity"
	contextPkg "SnapSight/pkg/context"
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type mediaRefRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type MediaRefDB struct {
	ID        sql.NullString `db:"id"`
	UserID    sql.NullString `db:"user_id"`
	Kind      sql.NullString `db:"kind"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r *mediaRefRepository) CreateRef(ctx context.Context, ref entity.StoredMediaRef) error {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"id":         ref.ID,
		"user_id":    ref.UserID,
		"kind":       ref.Kind,
		"created_at": ref.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateMediaRef, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateRef")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating media ref")
		return err
	}

	return nil
}

func (r *mediaRefRepository) ListRefs(ctx context.Context, limit, offset int) ([]entity.StoredMediaRef, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}

	query, args, err := sqlx.Named(queryListMediaRefs, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for ListRefs")
		return nil, 0, err
	}
	query = r.q.Rebind(query)

	var rows []MediaRefDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when listing media refs")
		return nil, 0, err
	}

	var total int
	if err := r.q.QueryRowxContext(ctx, queryCountMediaRefs).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when counting media refs")
		return nil, 0, err
	}

	refs := make([]entity.StoredMediaRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, entity.StoredMediaRef{
			ID:        row.ID.String,
			UserID:    row.UserID.String,
			Kind:      row.Kind.String,
			CreatedAt: row.CreatedAt,
		})
	}

	return refs, total, nil
}
