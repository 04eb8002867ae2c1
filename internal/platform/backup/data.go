package backup

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryer is the slice of pgx that backup needs. Satisfied by
// *pgxpool.Pool and pgx.Tx.
type Queryer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TableData is one table's rows in column order, every value rendered as
// a string. The empty string stands for NULL.
type TableData struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Dataset is a full export: one TableData per table, in registry order.
type Dataset struct {
	Tables []TableData
}
