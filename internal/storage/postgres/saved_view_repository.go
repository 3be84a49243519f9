package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

const uniqueViolation = "23505"

// SavedViewRepository хранит представления в таблице saved_views.
type SavedViewRepository struct {
	db *sql.DB
}

var _ domain.SavedViewRepository = (*SavedViewRepository)(nil)

// NewSavedViewRepository создаёт репозиторий поверх открытого Store.
func NewSavedViewRepository(store *Store) *SavedViewRepository {
	return &SavedViewRepository{db: store.DB()}
}

func (r *SavedViewRepository) Create(ctx context.Context, view domain.SavedView) (domain.SavedView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO saved_views (id, name, entity, query, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, view.ID, view.Name, string(view.Entity), view.Query, view.CreatedAt.UTC())
	if err := row.Scan(&view.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.SavedView{}, domain.ErrViewExists
		}
		return domain.SavedView{}, fmt.Errorf("insert saved view %s: %w", view.ID, err)
	}
	view.CreatedAt = view.CreatedAt.UTC()
	return view, nil
}

func (r *SavedViewRepository) Get(ctx context.Context, id string) (domain.SavedView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, entity, query, created_at
		FROM saved_views
		WHERE id = $1
	`, strings.TrimSpace(id))
	view, err := scanSavedView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedView{}, domain.ErrViewNotFound
	}
	if err != nil {
		return domain.SavedView{}, fmt.Errorf("select saved view %s: %w", id, err)
	}
	return view, nil
}

func (r *SavedViewRepository) List(ctx context.Context, entity domain.Entity) ([]domain.SavedView, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, entity, query, created_at
		FROM saved_views
		WHERE $1::text = '' OR entity = $1::text
		ORDER BY created_at DESC, id
	`, string(entity))
	if err != nil {
		return nil, fmt.Errorf("list saved views: %w", err)
	}
	defer rows.Close()

	views := make([]domain.SavedView, 0)
	for rows.Next() {
		view, err := scanSavedView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved view: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved views: %w", err)
	}
	return views, nil
}

func (r *SavedViewRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_views WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete saved view %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved view %s: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrViewNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedView(row rowScanner) (domain.SavedView, error) {
	var (
		view   domain.SavedView
		entity string
	)
	if err := row.Scan(&view.ID, &view.Name, &entity, &view.Query, &view.CreatedAt); err != nil {
		return domain.SavedView{}, err
	}
	view.Entity = domain.Entity(entity)
	view.CreatedAt = view.CreatedAt.UTC()
	return view, nil
}
