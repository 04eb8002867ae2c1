package identity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medpanel/medpanel/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a new Postgres-backed Repository.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// queryable abstracts pgxpool.Pool and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorColumns = `id, name, email, password_hash, specialization, created_at`

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (name, email, password_hash, specialization)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		d.Name, d.Email, d.PasswordHash, d.Specialization,
	).Scan(&d.ID, &d.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Doctor, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE name = $1`, username))
}

func (r *repoPG) Exists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE name = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	return exists, err
}

func (r *repoPG) scan(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.Specialization, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
