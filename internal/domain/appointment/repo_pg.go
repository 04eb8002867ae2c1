package appointment

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

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, p.nombre,
		       to_char(a.fecha, 'YYYY-MM-DD'), a.hora, a.motivo
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.fecha DESC, a.hora ASC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.PatientName, &a.Fecha, &a.Hora, &a.Motivo); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, fecha, hora, motivo)
		VALUES ($1, $2, $3::date, $4, $5)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.Fecha, a.Hora, a.Motivo,
	).Scan(&a.ID)
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET patient_id = $1, fecha = $2::date, hora = $3, motivo = $4
		WHERE id = $5 AND doctor_id = $6`,
		a.PatientID, a.Fecha, a.Hora, a.Motivo, a.ID, a.DoctorID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) Delete(ctx context.Context, id, doctorID int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM appointments WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
