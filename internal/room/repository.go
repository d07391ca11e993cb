package room

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Room(ctx context.Context, id string) (*Room, error) {
	const q = `
SELECT id, name, capacity, type, building, is_available
FROM rooms
WHERE id = $1
`
	rm := &Room{}
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&rm.ID, &rm.Name, &rm.Capacity, &rm.Type, &rm.Building, &rm.IsAvailable,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rm, nil
}

func (r *Repository) List(ctx context.Context) ([]Room, error) {
	const q = `
SELECT id, name, capacity, type, building, is_available
FROM rooms
ORDER BY building, name
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Room{}
	for rows.Next() {
		var rm Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.Type, &rm.Building, &rm.IsAvailable); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Upsert is used by the seeding tool; the booking engine never writes rooms.
func (r *Repository) Upsert(ctx context.Context, rm Room) error {
	const q = `
INSERT INTO rooms (id, name, capacity, type, building, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  capacity = EXCLUDED.capacity,
  type = EXCLUDED.type,
  building = EXCLUDED.building,
  is_available = EXCLUDED.is_available,
  updated_at = NOW()
`
	_, err := r.db.Exec(ctx, q, rm.ID, rm.Name, rm.Capacity, string(rm.Type), rm.Building, rm.IsAvailable)
	return err
}
