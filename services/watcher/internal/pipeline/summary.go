package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of one file within a run.
type Status string

const (
	StatusCommitted    Status = "committed"
	StatusDryRun       Status = "dry_run"
	StatusEmpty        Status = "empty"
	StatusUnresolvable Status = "unresolvable"
	StatusUnchanged    Status = "unchanged"
	StatusFailed       Status = "failed"
)

// FileResult reports what happened to one remote file.
type FileResult struct {
	Name        string
	StationCode string
	Status      Status
	Err         *Error

	Parsed   int
	Written  int
	Rejected int
	Ignored  int
}

func (r *FileResult) skip(kind Kind, err error) {
	r.Status = StatusUnresolvable
	r.Err = &Error{Kind: kind, File: r.Name, Err: err}
}

func (r *FileResult) fail(kind Kind, err error) {
	r.Status = StatusFailed
	r.Err = &Error{Kind: kind, File: r.Name, Err: err}
}

// RunSummary is the end-of-run report.
type RunSummary struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Listed     int
	Files      []FileResult
}

// Processed counts files that reached the parsing stage.
func (s *RunSummary) Processed() int {
	return s.count(StatusCommitted, StatusDryRun, StatusEmpty)
}

// Skipped counts files left out on purpose.
func (s *RunSummary) Skipped() int {
	return s.count(StatusUnresolvable, StatusUnchanged)
}

// Failed counts files whose fetch, parse or commit failed.
func (s *RunSummary) Failed() int {
	return s.count(StatusFailed)
}

// RecordsWritten sums the records committed across files.
func (s *RunSummary) RecordsWritten() int {
	n := 0
	for _, f := range s.Files {
		n += f.Written
	}
	return n
}

// RowsRejected sums the malformed rows across files.
func (s *RunSummary) RowsRejected() int {
	n := 0
	for _, f := range s.Files {
		n += f.Rejected
	}
	return n
}

func (s *RunSummary) count(statuses ...Status) int {
	n := 0
	for _, f := range s.Files {
		for _, st := range statuses {
			if f.Status == st {
				n++
				break
			}
		}
	}
	return n
}
