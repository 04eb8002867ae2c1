package prescription

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

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT pr.id, pr.patient_id, pr.doctor_id, p.nombre,
		       pr.medicamento, pr.dosis, pr.frecuencia, pr.duracion, pr.created_at
		FROM prescriptions pr
		JOIN patients p ON p.id = pr.patient_id
		WHERE pr.doctor_id = $1
		ORDER BY pr.created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.PatientName,
			&p.Medicamento, &p.Dosis, &p.Frecuencia, &p.Duracion, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (patient_id, doctor_id, medicamento, dosis, frecuencia, duracion)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.PatientID, p.DoctorID, p.Medicamento, p.Dosis, p.Frecuencia, p.Duracion,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescriptions SET patient_id = $1, medicamento = $2, dosis = $3, frecuencia = $4, duracion = $5
		WHERE id = $6 AND doctor_id = $7`,
		p.PatientID, p.Medicamento, p.Dosis, p.Frecuencia, p.Duracion, p.ID, p.DoctorID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) Delete(ctx context.Context, id, doctorID int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM prescriptions WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
