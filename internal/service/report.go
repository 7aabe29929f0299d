package service

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"catalog-sync/internal/rewrite"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeFailed     Outcome = "failed"
)

const (
	OpInserted = "inserted"
	OpDeleted  = "deleted"
	OpUpdated  = "updated"
)

// TableCounts are the rows a run wrote to one table.
type TableCounts struct {
	Inserted int64 `json:"inserted"`
	Deleted  int64 `json:"deleted"`
	Updated  int64 `json:"updated"`
}

// Report describes one sync run.
type Report struct {
	RunID      string                  `json:"runId"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt time.Time               `json:"finishedAt"`
	DryRun     bool                    `json:"dryRun"`
	Outcome    Outcome                 `json:"outcome"`
	Error      string                  `json:"error,omitempty"`
	Tables     map[string]*TableCounts `json:"tables"`

	Conflicts   []string             `json:"conflicts,omitempty"`
	Skipped     []string             `json:"skipped,omitempty"`
	Duplicates  []string             `json:"duplicates,omitempty"`
	TargetOnly  []int64              `json:"targetOnlyConfigs,omitempty"`
	Diagnostics []rewrite.Diagnostic `json:"diagnostics,omitempty"`

	NextCreateID  int64 `json:"nextCreateId"`
	LinkedCleans  int64 `json:"linkedCleans"`
	CodecFailures int64 `json:"codecFailures"`
}

func newReport(runID string, dryRun bool, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		DryRun:    dryRun,
		Tables:    make(map[string]*TableCounts),
	}
}

func (r *Report) count(table, op string, n int64) {
	tc, ok := r.Tables[table]
	if !ok {
		tc = &TableCounts{}
		r.Tables[table] = tc
	}
	switch op {
	case OpInserted:
		tc.Inserted += n
	case OpDeleted:
		tc.Deleted += n
	case OpUpdated:
		tc.Updated += n
	}
}

// Counts returns the counts of table, zero when nothing was written to it.
func (r *Report) Counts(table string) TableCounts {
	if tc, ok := r.Tables[table]; ok {
		return *tc
	}
	return TableCounts{}
}

// DiagnosticsOf returns the diagnostics of one kind.
func (r *Report) DiagnosticsOf(kind rewrite.DiagnosticKind) []rewrite.Diagnostic {
	var out []rewrite.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Fields summarizes the report for a log line.
func (r *Report) Fields() []zap.Field {
	tables := make([]string, 0, len(r.Tables))
	for t := range r.Tables {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	fields := []zap.Field{
		zap.String("outcome", string(r.Outcome)),
		zap.Bool("dry_run", r.DryRun),
		zap.Duration("elapsed", r.FinishedAt.Sub(r.StartedAt)),
		zap.Int("conflicts", len(r.Conflicts)),
		zap.Int("diagnostics", len(r.Diagnostics)),
		zap.Int64("codec_failures", r.CodecFailures),
	}
	for _, t := range tables {
		tc := r.Tables[t]
		fields = append(fields, zap.Dict(t,
			zap.Int64(OpInserted, tc.Inserted),
			zap.Int64(OpDeleted, tc.Deleted),
			zap.Int64(OpUpdated, tc.Updated),
		))
	}
	if r.Error != "" {
		fields = append(fields, zap.String("error", r.Error))
	}
	return fields
}
