package dat

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// Absent marks a canonical field with no matching source column.
const Absent = -1

// ColumnIndex maps canonical fields to zero-based source column positions.
// It is built once per file and never shared.
type ColumnIndex struct {
	Timestamp int
	Fields    [models.NumFields]int
}

// Column returns the source position of f, or Absent.
func (ci ColumnIndex) Column(f models.Field) int {
	if f < 0 || int(f) >= models.NumFields {
		return Absent
	}
	return ci.Fields[f]
}

// String renders the mapping deterministically, for logs.
func (ci ColumnIndex) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timestamp=%d", ci.Timestamp)
	for _, f := range models.Fields() {
		if ci.Fields[f] == Absent {
			continue
		}
		fmt.Fprintf(&b, " %s=%d", f, ci.Fields[f])
	}
	return b.String()
}

// Mapped counts the canonical fields that found a source column.
func (ci ColumnIndex) Mapped() int {
	n := 0
	for _, idx := range ci.Fields {
		if idx != Absent {
			n++
		}
	}
	return n
}

// SplitRecord tokenizes one delimited line, honoring double quotes so that
// embedded commas stay inside their field.
func SplitRecord(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// BuildIndex maps a tokenized header onto the canonical fields. For each
// field, columns are scanned left to right and the first column containing
// any of the field's aliases (case-sensitive substring) wins. The timestamp
// falls back to any column mentioning "Fecha" or "TIMESTAMP", then to 0.
func BuildIndex(header []string, table AliasTable) ColumnIndex {
	ci := ColumnIndex{Timestamp: matchColumn(header, table.Timestamp)}
	if ci.Timestamp == Absent {
		ci.Timestamp = matchColumn(header, timestampFallbacks)
	}
	if ci.Timestamp == Absent {
		ci.Timestamp = 0
	}

	for i := range ci.Fields {
		ci.Fields[i] = Absent
	}
	for _, spec := range table.Fields {
		ci.Fields[spec.Field] = matchColumn(header, spec.Aliases)
	}
	return ci
}

func matchColumn(header []string, aliases []string) int {
	if len(aliases) == 0 {
		return Absent
	}
	for i, col := range header {
		for _, alias := range aliases {
			if alias != "" && strings.Contains(col, alias) {
				return i
			}
		}
	}
	return Absent
}
