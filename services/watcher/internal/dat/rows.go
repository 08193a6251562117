package dat

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hidrolab/telemetria/services/watcher/internal/models"
)

// dataLinePrefix admits lines starting with a quoted 20xx year.
const dataLinePrefix = `"20`

var (
	// ErrEmptyPayload is returned when a file has no header line.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrNoTimestamp rejects a row whose primary timestamp cannot be parsed.
	ErrNoTimestamp = errors.New("missing or invalid timestamp")
)

// RowError describes one rejected data line.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Result is the outcome of parsing one file.
type Result struct {
	Index    ColumnIndex
	Readings []models.Reading
	Rejected []RowError
	// Ignored counts non-empty lines that were not data candidates.
	Ignored int
}

// Parser turns decoded file lines into typed readings.
type Parser struct {
	Aliases  AliasTable
	Location *time.Location
}

// NewParser returns a parser using the given alias table and time zone.
func NewParser(aliases AliasTable, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{Aliases: aliases, Location: loc}
}

// IsDataLine reports whether a raw line is a data candidate.
func IsDataLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), dataLinePrefix)
}

// Parse maps the header (first line) and parses every data candidate line.
// Malformed rows are collected in Result.Rejected and never abort the file.
func (p *Parser) Parse(lines []string, stationID int64) (Result, error) {
	if len(lines) == 0 {
		return Result{}, ErrEmptyPayload
	}

	header, err := SplitRecord(lines[0])
	if errors.Is(err, io.EOF) {
		return Result{}, ErrEmptyPayload
	}
	if err != nil {
		return Result{}, fmt.Errorf("parse header: %w", err)
	}

	res := Result{Index: BuildIndex(header, p.Aliases)}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !IsDataLine(trimmed) {
			if i > 0 {
				res.Ignored++
			}
			continue
		}

		reading, err := p.ParseLine(trimmed, res.Index)
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Line: i + 1, Err: err})
			continue
		}
		reading.StationID = stationID
		res.Readings = append(res.Readings, reading)
	}
	return res, nil
}

// ParseLine tokenizes and coerces a single line without applying the data
// line admission filter.
func (p *Parser) ParseLine(line string, ci ColumnIndex) (models.Reading, error) {
	fields, err := SplitRecord(line)
	if err != nil {
		return models.Reading{}, fmt.Errorf("tokenize: %w", err)
	}
	return p.ParseFields(fields, ci)
}

// ParseFields coerces already tokenized fields into a reading. Fields whose
// column is absent or out of range stay nil.
func (p *Parser) ParseFields(fields []string, ci ColumnIndex) (models.Reading, error) {
	var r models.Reading

	ts := ParseTimestamp(value(fields, ci.Timestamp), p.Location)
	if ts == nil {
		return r, ErrNoTimestamp
	}
	r.Timestamp = *ts

	for _, f := range models.Fields() {
		idx := ci.Column(f)
		if idx == Absent || idx >= len(fields) {
			continue
		}
		raw := fields[idx]
		switch f.Kind() {
		case models.KindInt:
			r.RecordID = ParseInt(raw)
		case models.KindTime:
			r.SetTime(f, ParseTimestamp(raw, p.Location))
		default:
			r.SetFloat(f, ParseFloat(raw))
		}
	}
	return r, nil
}

func value(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
