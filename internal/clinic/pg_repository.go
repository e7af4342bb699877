package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-booking/internal/db"
)

type PgRepository struct {
	pool db.DBTX
}

func NewPgRepository(pool db.DBTX) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service

	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price, &s.Duration, &s.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff

	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, price, duration, type
		FROM services
		ORDER BY price ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// SaveServices replaces the catalog: services missing from the list are
// removed and the rest upserted, in one transaction.
func (r *PgRepository) SaveServices(ctx context.Context, services []Service) error {
	ids := make([]string, 0, len(services))
	for _, s := range services {
		ids = append(ids, s.ID)
	}

	beginner, ok := r.pool.(db.TxBeginner)
	if !ok {
		return errors.New("save services: connection cannot begin a transaction")
	}

	return db.InTx(ctx, beginner, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM services WHERE id <> ALL($1)`, ids); err != nil {
			return fmt.Errorf("prune services: %w", err)
		}
		for _, s := range services {
			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, name, description, price, duration, type)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name,
				    description = EXCLUDED.description,
				    price = EXCLUDED.price,
				    duration = EXCLUDED.duration,
				    type = EXCLUDED.type
			`, s.ID, s.Name, s.Description, s.Price, s.Duration, s.Type)
			if err != nil {
				return fmt.Errorf("upsert service %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

func (r *PgRepository) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, password_hash, role
		FROM staff
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetStaffByEmail(ctx context.Context, email string) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role
		FROM staff
		WHERE lower(email) = lower($1)
	`, email)
	return scanStaff(row)
}

func (r *PgRepository) AddStaff(ctx context.Context, s Staff) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, password_hash, role
	`, s.ID, s.Name, s.Email, s.PasswordHash, s.Role)
	return scanStaff(row)
}

func (r *PgRepository) RemoveStaff(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (r *PgRepository) GetSettings(ctx context.Context) (*Settings, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}

	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}

func (r *PgRepository) SaveSettings(ctx context.Context, s Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO settings (id, data, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data,
		    updated_at = now()
	`, raw)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
