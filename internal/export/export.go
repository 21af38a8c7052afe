// Package export is the JSON/CSV exporter spec.md §1 names as an
// out-of-scope external collaborator: it turns store rows into files, with
// no analytical behavior of its own.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/uharev-ux/dex-dump-screener/internal/store"
)

// Format is the two file formats the CLI's --format flag accepts.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Table names the store table the CLI's --table flag names.
type Table string

const (
	TableSnapshots     Table = "snapshots"
	TablePairs         Table = "pairs"
	TableTokens        Table = "tokens"
	TableDumpWatchlist Table = "dump_watchlist"
)

// Rows loads a table's full contents as an ordered list of field maps —
// the shape both writers below consume.
func Rows(st *store.Store, table Table) ([]map[string]any, error) {
	switch table {
	case TableSnapshots:
		rows, err := st.IterateSnapshots("", nil, nil)
		return toRows(rows, err)
	case TablePairs:
		rows, err := st.IteratePairs()
		return toRows(rows, err)
	case TableTokens:
		rows, err := st.IterateTokens()
		return toRows(rows, err)
	case TableDumpWatchlist:
		rows, err := st.IterateDumpWatchlist("", 0)
		return toRows(rows, err)
	default:
		return nil, errors.Errorf("unknown table %q", table)
	}
}

// toRows round-trips through JSON to get a stable field-map shape from any
// tagged struct slice, matching the source's dynamic dict-per-row export.
func toRows[T any](rows []T, err error) ([]map[string]any, error) {
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, errors.Wrap(err, "marshal rows")
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshal rows")
	}
	return out, nil
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(path string, rows []map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rows), "encode json export")
}

// WriteCSV writes rows with a header row taken from the first row's keys,
// sorted alphabetically — an empty rows slice produces an empty file rather
// than an error.
func WriteCSV(path string, rows []map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	defer f.Close()
	if len(rows) == 0 {
		return nil
	}

	headers := fieldOrder(rows[0])
	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, row := range rows {
		record := make([]string, len(headers))
		for i, h := range headers {
			record[i] = stringify(row[h])
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv export")
}

func fieldOrder(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
