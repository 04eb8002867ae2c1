package patient

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

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, nombre, email, telefono, created_at
		FROM patients
		WHERE doctor_id = $1
		ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*Patient
	byID := make(map[int64]*Patient)
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.DoctorID, &p.Nombre, &p.Email, &p.Telefono, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Notas = []Note{}
		patients = append(patients, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return patients, nil
	}

	noteRows, err := r.conn(ctx).Query(ctx, `
		SELECT pn.patient_id, pn.texto, to_char(pn.fecha, 'YYYY-MM-DD')
		FROM patient_notes pn
		JOIN patients p ON p.id = pn.patient_id
		WHERE p.doctor_id = $1
		ORDER BY pn.id`, doctorID)
	if err != nil {
		return nil, err
	}
	defer noteRows.Close()

	for noteRows.Next() {
		var patientID int64
		var n Note
		if err := noteRows.Scan(&patientID, &n.Texto, &n.Fecha); err != nil {
			return nil, err
		}
		if p, ok := byID[patientID]; ok {
			p.Notas = append(p.Notas, n)
		}
	}
	return patients, noteRows.Err()
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (doctor_id, nombre, email, telefono)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		p.DoctorID, p.Nombre, p.Email, p.Telefono,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *repoPG) Update(ctx context.Context, p *Patient) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET nombre = $1, email = $2, telefono = $3
		WHERE id = $4 AND doctor_id = $5`,
		p.Nombre, p.Email, p.Telefono, p.ID, p.DoctorID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the patient's notes, appointments and prescriptions before
// the patient row itself, all inside one transaction so a failure leaves
// everything in place.
func (r *repoPG) Delete(ctx context.Context, id, doctorID int64) (bool, error) {
	deleted := false
	err := db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		owned, err := r.OwnedBy(ctx, id, doctorID)
		if err != nil {
			return err
		}
		if !owned {
			return nil
		}

		c := r.conn(ctx)
		if _, err := c.Exec(ctx, `DELETE FROM patient_notes WHERE patient_id = $1`, id); err != nil {
			return err
		}
		if _, err := c.Exec(ctx, `DELETE FROM appointments WHERE patient_id = $1`, id); err != nil {
			return err
		}
		if _, err := c.Exec(ctx, `DELETE FROM prescriptions WHERE patient_id = $1`, id); err != nil {
			return err
		}
		tag, err := c.Exec(ctx, `DELETE FROM patients WHERE id = $1 AND doctor_id = $2`, id, doctorID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func (r *repoPG) OwnedBy(ctx context.Context, id, doctorID int64) (bool, error) {
	var owned bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1 AND doctor_id = $2)`,
		id, doctorID,
	).Scan(&owned)
	return owned, err
}

func (r *repoPG) AddNote(ctx context.Context, patientID int64, texto, fecha string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_notes (patient_id, texto, fecha)
		VALUES ($1, $2, COALESCE(NULLIF($3, '')::date, CURRENT_DATE))`,
		patientID, texto, fecha,
	)
	return err
}
