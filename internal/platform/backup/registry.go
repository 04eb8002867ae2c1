// Package backup exports and imports the office data set. Only tables in
// the registry can be touched, so a crafted import file cannot reach
// arbitrary tables.
package backup

import (
	"context"
	"fmt"
)

// Table describes one exportable table. Nullable lists the columns the
// schema allows to be NULL; every current column is NOT NULL, the field
// exists for migrations that relax a column.
type Table struct {
	Name     string
	PK       string
	Columns  []string
	Nullable []string
}

// IsNullable reports whether col may carry NULL in the live schema.
func (t Table) IsNullable(col string) bool {
	for _, c := range t.Nullable {
		if c == col {
			return true
		}
	}
	return false
}

// Registry is the allow-list of tables the backup subsystem may read and
// write.
type Registry struct {
	tables map[string]Table
	order  []string
}

// DefaultRegistry covers the panel's full schema in dependency order, so
// an import can replay parents before children.
func DefaultRegistry() *Registry {
	r := &Registry{tables: make(map[string]Table)}
	for _, t := range []Table{
		{Name: "doctors", PK: "id", Columns: []string{"id", "name", "email", "password_hash", "specialization", "created_at"}},
		{Name: "patients", PK: "id", Columns: []string{"id", "doctor_id", "nombre", "email", "telefono", "created_at"}},
		{Name: "patient_notes", PK: "id", Columns: []string{"id", "patient_id", "texto", "fecha"}},
		{Name: "appointments", PK: "id", Columns: []string{"id", "patient_id", "doctor_id", "fecha", "hora", "motivo", "created_at"}},
		{Name: "prescriptions", PK: "id", Columns: []string{"id", "patient_id", "doctor_id", "medicamento", "dosis", "frecuencia", "duracion", "created_at"}},
	} {
		r.tables[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// Lookup resolves a table by name.
func (r *Registry) Lookup(name string) (Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Names returns all registered table names in dependency order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Resolve maps requested names to registered tables, in registry order.
// An empty request means every table.
func (r *Registry) Resolve(requested []string) ([]Table, error) {
	if len(requested) == 0 {
		requested = r.order
	}
	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		if _, ok := r.tables[name]; !ok {
			return nil, fmt.Errorf("unknown table %q", name)
		}
		want[name] = true
	}

	var out []Table
	for _, name := range r.order {
		if want[name] {
			out = append(out, r.tables[name])
		}
	}
	return out, nil
}

// Verify checks that every registered column actually exists in the live
// schema. Run at startup of the export and import commands to fail fast
// after a migration drift.
func (r *Registry) Verify(ctx context.Context, q Queryer) error {
	for _, name := range r.order {
		t := r.tables[name]
		for _, col := range t.Columns {
			var exists bool
			err := q.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM information_schema.columns
					WHERE table_name = $1 AND column_name = $2
				)`, t.Name, col).Scan(&exists)
			if err != nil {
				return fmt.Errorf("verify %s.%s: %w", t.Name, col, err)
			}
			if !exists {
				return fmt.Errorf("schema drift: column %s.%s not found", t.Name, col)
			}
		}
	}
	return nil
}
