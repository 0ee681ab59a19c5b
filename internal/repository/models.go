package repository

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a persisted analysis run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AnalysisRun is the persisted record of a single pointer-analysis run,
// one row per Engine.Run invocation.
type AnalysisRun struct {
	ID                uint      `gorm:"primarykey"`
	ModuleName        string    `gorm:"index;size:256"`
	Status            RunStatus `gorm:"size:32;index"`
	FieldSensitive    bool
	NodeCount         int
	ConstraintCount   int
	ObjectCount       int
	SolveDurationMS   int64
	TotalDurationMS   int64
	TerminationReason string `gorm:"size:64"` // "converged", "ram_limit", "time_limit"
	ErrorMessage      string `gorm:"size:1024"`
	DiagnosticsKey    string `gorm:"size:256"` // storage key for archived diagnostics, if any
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

// QuerySample is an optional persisted points-to query result attached to
// a run, used to record representative answers for later inspection.
type QuerySample struct {
	ID         uint   `gorm:"primarykey"`
	RunID      uint   `gorm:"index"`
	Expression string `gorm:"size:512"`
	PointsTo   JSONField
	CreatedAt  time.Time
}

// JSONField stores a JSON-encoded blob in a single TEXT/BLOB column,
// following the same pattern the teacher used for free-form payloads.
type JSONField []byte

// MarshalQuerySamplePointsTo encodes a set of object labels as a JSONField.
func MarshalQuerySamplePointsTo(labels []string) (JSONField, error) {
	b, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}
	return JSONField(b), nil
}

// Labels decodes the stored points-to set back into object labels.
func (q *QuerySample) Labels() ([]string, error) {
	if len(q.PointsTo) == 0 {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal(q.PointsTo, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}
