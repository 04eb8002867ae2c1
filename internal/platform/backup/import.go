package backup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Result summarizes one import run.
type Result struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Importer loads a previously exported file back into the database using
// primary-key upserts. Rows for unregistered tables or unknown columns
// are skipped, never applied.
type Importer struct {
	db       Queryer
	registry *Registry
	log      zerolog.Logger
}

func NewImporter(db Queryer, registry *Registry, log zerolog.Logger) *Importer {
	return &Importer{db: db, registry: registry, log: log}
}

// Import reads path in the given format and applies it.
func (im *Importer) Import(ctx context.Context, path, format string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	var ds Dataset
	switch format {
	case FormatCSV:
		ds, err = readCSV(f)
	case FormatJSON:
		ds, err = readJSON(f)
	case FormatXML:
		ds, err = readXML(f)
	default:
		err = fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return Result{}, err
	}

	if err := im.registry.Verify(ctx, im.db); err != nil {
		return Result{}, err
	}

	var res Result
	for _, data := range ds.Tables {
		table, ok := im.registry.Lookup(data.Name)
		if !ok {
			im.log.Warn().Str("table", data.Name).Msg("skipping unregistered table")
			res.Skipped += len(data.Rows)
			continue
		}
		im.applyTable(ctx, table, data, &res)
	}

	im.log.Info().
		Int("imported", res.Imported).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("import completed")
	return res, nil
}

func (im *Importer) applyTable(ctx context.Context, table Table, data TableData, res *Result) {
	cols, indexes := intersectColumns(table, data.Columns)
	if len(cols) == 0 || !contains(cols, table.PK) {
		res.Skipped += len(data.Rows)
		return
	}

	stmt := upsertStatement(table, cols)
	for _, row := range data.Rows {
		args := make([]interface{}, len(cols))
		for i, idx := range indexes {
			args[i] = importValue(table, cols[i], row[idx])
		}

		// xmax = 0 only on a freshly inserted row, so the same statement
		// reports insert vs update.
		var inserted bool
		err := im.db.QueryRow(ctx, stmt+" RETURNING (xmax = 0)", args...).Scan(&inserted)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			res.Skipped++
		case err != nil:
			im.log.Error().Err(err).Str("table", table.Name).Msg("import row failed")
			res.Errors++
		case inserted:
			res.Imported++
		default:
			res.Updated++
		}
	}
}

// importValue maps an empty string to NULL only where the schema allows
// it. Empty text in a NOT NULL column round-trips as the empty string it
// was exported with instead of tripping the constraint.
func importValue(table Table, col, raw string) interface{} {
	if raw == "" && table.IsNullable(col) {
		return nil
	}
	return raw
}

// intersectColumns returns the registered columns present in the file,
// with their positions in the file's column list.
func intersectColumns(table Table, fileCols []string) ([]string, []int) {
	var cols []string
	var indexes []int
	for i, fc := range fileCols {
		if contains(table.Columns, fc) {
			cols = append(cols, fc)
			indexes = append(indexes, i)
		}
	}
	return cols, indexes
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// upsertStatement builds an INSERT ... ON CONFLICT (pk) DO UPDATE with
// text casts so every value can travel as a string.
func upsertStatement(table Table, cols []string) string {
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d::text::%s", i+1, columnCast(table, col))
		if col != table.PK {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if len(updates) == 0 {
		return stmt + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", table.PK)
	}
	return stmt + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", table.PK, strings.Join(updates, ", "))
}

// columnCast maps a column to the SQL type its text value is cast to.
func columnCast(table Table, col string) string {
	switch {
	case col == "id" || strings.HasSuffix(col, "_id"):
		return "bigint"
	case col == "duracion":
		return "int"
	case col == "fecha":
		return "date"
	case col == "created_at":
		return "timestamptz"
	default:
		return "text"
	}
}

// -- format readers --

func readCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var ds Dataset
	var current *TableData
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, err
		}
		if len(record) == 0 {
			continue
		}
		if record[0] == "#table" {
			ds.Tables = append(ds.Tables, TableData{Columns: record[1:]})
			current = &ds.Tables[len(ds.Tables)-1]
			continue
		}
		if current == nil {
			return Dataset{}, fmt.Errorf("csv: data row before table header")
		}
		if current.Name == "" {
			current.Name = record[0]
		}
		current.Rows = append(current.Rows, record[1:])
	}
	return ds, nil
}

func readJSON(r io.Reader) (Dataset, error) {
	var in jsonExport
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return Dataset{}, err
	}

	var ds Dataset
	order := in.ExportInfo.Tables
	if len(order) == 0 {
		for name := range in.Data {
			order = append(order, name)
		}
	}
	for _, name := range order {
		records := in.Data[name]
		if len(records) == 0 {
			continue
		}
		var cols []string
		for col := range records[0] {
			cols = append(cols, col)
		}
		t := TableData{Name: name, Columns: cols}
		for _, rec := range records {
			row := make([]string, len(cols))
			for i, col := range cols {
				row[i] = rec[col]
			}
			t.Rows = append(t.Rows, row)
		}
		ds.Tables = append(ds.Tables, t)
	}
	return ds, nil
}

func readXML(r io.Reader) (Dataset, error) {
	var in xmlExport
	if err := xml.NewDecoder(r).Decode(&in); err != nil {
		return Dataset{}, err
	}

	var ds Dataset
	for _, xt := range in.Tables {
		if len(xt.Rows) == 0 {
			continue
		}
		var cols []string
		for _, f := range xt.Rows[0].Fields {
			cols = append(cols, f.Name)
		}
		t := TableData{Name: xt.Name, Columns: cols}
		for _, xr := range xt.Rows {
			row := make([]string, len(cols))
			for _, f := range xr.Fields {
				for i, col := range cols {
					if col == f.Name {
						row[i] = f.Value
					}
				}
			}
			t.Rows = append(t.Rows, row)
		}
		ds.Tables = append(ds.Tables, t)
	}
	return ds, nil
}
