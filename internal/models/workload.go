package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstructorWorkload summarises an instructor's assigned hours against the contract.
type InstructorWorkload struct {
	InstructorID   string           `json:"instructor_id"`
	FullName       string           `json:"full_name"`
	HourCount      decimal.Decimal  `json:"hour_count"`
	HourLimit      *int             `json:"hour_limit,omitempty"`
	AvailableHours *decimal.Decimal `json:"available_hours,omitempty"`
	PercentUsed    *decimal.Decimal `json:"percent_used,omitempty"`
}

// LedgerDrift reports an instructor whose cached minutes differ from the recomputed total.
type LedgerDrift struct {
	InstructorID    string `db:"instructor_id" json:"instructor_id"`
	StoredMinutes   int    `db:"stored_minutes" json:"stored_minutes"`
	ComputedMinutes int    `db:"computed_minutes" json:"computed_minutes"`
}

// ConsistencyReport is the outcome of one audit run over a quarter.
type ConsistencyReport struct {
	QuarterID   string           `json:"quarter_id"`
	QuarterName string           `json:"quarter_name"`
	Conflicts   []*ConflictError `json:"conflicts"`
	Drift       []LedgerDrift    `json:"drift"`
	Reconciled  int              `json:"reconciled"`
	CheckedAt   time.Time        `json:"checked_at"`
}

// CountByKind tallies the report's conflicts per kind.
func (r ConsistencyReport) CountByKind() map[string]int {
	counts := map[string]int{
		string(ConflictInstructor): 0,
		string(ConflictGroup):      0,
		string(ConflictClassroom):  0,
		string(ConflictCapacity):   0,
		string(ConflictHourLimit):  0,
	}
	for _, conflict := range r.Conflicts {
		counts[string(conflict.Kind)]++
	}
	return counts
}
