package backup

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatSQL  = "sql"
)

// Exporter dumps registered tables to a file in the export directory.
type Exporter struct {
	db       Queryer
	registry *Registry
	dir      string
	log      zerolog.Logger
	now      func() time.Time
}

func NewExporter(db Queryer, registry *Registry, dir string, log zerolog.Logger) *Exporter {
	return &Exporter{db: db, registry: registry, dir: dir, log: log, now: time.Now}
}

// Export writes the requested tables in the given format and returns the
// file path.
func (e *Exporter) Export(ctx context.Context, tables []string, format string) (string, error) {
	resolved, err := e.registry.Resolve(tables)
	if err != nil {
		return "", err
	}
	if err := e.registry.Verify(ctx, e.db); err != nil {
		return "", err
	}

	ds := Dataset{}
	for _, t := range resolved {
		data, err := e.fetch(ctx, t)
		if err != nil {
			return "", fmt.Errorf("export %s: %w", t.Name, err)
		}
		ds.Tables = append(ds.Tables, data)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("export_%s.%s", e.now().Format("2006-01-02_15-04-05"), format)
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = writeCSV(f, ds)
	case FormatJSON:
		err = writeJSON(f, ds, e.now())
	case FormatXML:
		err = writeXML(f, ds, e.now())
	case FormatSQL:
		err = writeSQL(f, ds)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}

	total := 0
	for _, t := range ds.Tables {
		total += len(t.Rows)
	}
	e.log.Info().Str("path", path).Str("format", format).Int("rows", total).Msg("export completed")
	return path, nil
}

func (e *Exporter) fetch(ctx context.Context, t Table) (TableData, error) {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c + "::text"
	}
	rows, err := e.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY %s`, strings.Join(cols, ", "), t.Name, t.PK))
	if err != nil {
		return TableData{}, err
	}
	defer rows.Close()

	data := TableData{Name: t.Name, Columns: t.Columns}
	for rows.Next() {
		values := make([]*string, len(t.Columns))
		dests := make([]interface{}, len(t.Columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return TableData{}, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			if v != nil {
				row[i] = *v
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data, rows.Err()
}

// -- format writers --

func writeCSV(w io.Writer, ds Dataset) error {
	cw := csv.NewWriter(w)
	for _, t := range ds.Tables {
		header := make([]string, len(t.Columns)+1)
		header[0] = "#table"
		copy(header[1:], t.Columns)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, row := range t.Rows {
			record := make([]string, len(row)+1)
			record[0] = t.Name
			copy(record[1:], row)
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonExport struct {
	ExportInfo jsonExportInfo               `json:"export_info"`
	Data       map[string][]map[string]string `json:"data"`
}

type jsonExportInfo struct {
	Date   string   `json:"date"`
	Tables []string `json:"tables"`
}

func writeJSON(w io.Writer, ds Dataset, now time.Time) error {
	out := jsonExport{
		ExportInfo: jsonExportInfo{Date: now.Format(time.RFC3339)},
		Data:       make(map[string][]map[string]string),
	}
	for _, t := range ds.Tables {
		out.ExportInfo.Tables = append(out.ExportInfo.Tables, t.Name)
		records := make([]map[string]string, 0, len(t.Rows))
		for _, row := range t.Rows {
			rec := make(map[string]string, len(t.Columns))
			for i, col := range t.Columns {
				rec[col] = row[i]
			}
			records = append(records, rec)
		}
		out.Data[t.Name] = records
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type xmlExport struct {
	XMLName    xml.Name   `xml:"export"`
	ExportDate string     `xml:"export_date,attr"`
	Tables     []xmlTable `xml:"table"`
}

type xmlTable struct {
	Name string   `xml:"name,attr"`
	Rows []xmlRow `xml:"row"`
}

type xmlRow struct {
	Fields []xmlField `xml:"field"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func writeXML(w io.Writer, ds Dataset, now time.Time) error {
	out := xmlExport{ExportDate: now.Format(time.RFC3339)}
	for _, t := range ds.Tables {
		xt := xmlTable{Name: t.Name}
		for _, row := range t.Rows {
			xr := xmlRow{}
			for i, col := range t.Columns {
				xr.Fields = append(xr.Fields, xmlField{Name: col, Value: row[i]})
			}
			xt.Rows = append(xt.Rows, xr)
		}
		out.Tables = append(out.Tables, xt)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(out)
}

func writeSQL(w io.Writer, ds Dataset) error {
	for _, t := range ds.Tables {
		for _, row := range t.Rows {
			values := make([]string, len(row))
			for i, v := range row {
				values[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
			}
			stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);\n",
				t.Name, strings.Join(t.Columns, ", "), strings.Join(values, ", "))
			if _, err := io.WriteString(w, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}
