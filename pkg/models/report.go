package models

import "time"

// SyncAction describes what the sync driver decided to do with an entry.
type SyncAction string

const (
	SyncActionInsert SyncAction = "insert"
	SyncActionUpdate SyncAction = "update"
)

// PlannedChange is one store operation the driver intends to apply.
type PlannedChange struct {
	Action SyncAction    `json:"action"`
	Entry  ScheduleEntry `json:"entry"`
}

// Report summarizes a reconciliation run for operators. Unresolved names are
// reported with occurrence counts so the registry can be amended and the run
// safely repeated.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`

	RowsBySource map[string]int `json:"rows_by_source"`
	RowsDropped  int            `json:"rows_dropped"` // missing amount or counterparty text
	RowsMerged   int            `json:"rows_merged"`  // unique obligations after merge

	UnresolvedCounterparties map[string]int `json:"unresolved_counterparties"`
	UnresolvedCostCenters    map[string]int `json:"unresolved_cost_centers"`

	EntriesByStatus map[Status]int `json:"entries_by_status"`

	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"` // fingerprint matched the stored entry
}

// NewReport returns a report with all maps initialized.
func NewReport() *Report {
	return &Report{
		StartedAt:                time.Now().UTC(),
		RowsBySource:             make(map[string]int),
		UnresolvedCounterparties: make(map[string]int),
		UnresolvedCostCenters:    make(map[string]int),
		EntriesByStatus:          make(map[Status]int),
	}
}
