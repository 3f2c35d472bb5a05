// Job status and sort key enumerations. The sort ring and the per-key SQL
// ordering live here so the cycle order and the ordering rules have a single
// home instead of being scattered across handlers.
package domain

// JobStatus is the lifecycle state of a PlugJob. Started is the only
// non-terminal state.
type JobStatus string

// Job lifecycle states.
const (
	StatusStarted  JobStatus = "started"
	StatusStopped  JobStatus = "stopped"
	StatusFinished JobStatus = "finished"
	StatusFailed   JobStatus = "failed"
)

// TerminalStatuses are the states a started job may transition into.
var TerminalStatuses = []JobStatus{StatusStopped, StatusFinished, StatusFailed}

// Valid reports whether s is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusStarted, StatusStopped, StatusFinished, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends the job lifecycle.
func (s JobStatus) Terminal() bool { return s.Valid() && s != StatusStarted }

// SortKey selects the job list ordering. Users advance through the keys one
// step at a time; the ring wraps from duration back to id.
type SortKey string

// Job list sort keys, in ring order.
const (
	SortByID        SortKey = "id"
	SortByName      SortKey = "name"
	SortByStatus    SortKey = "status"
	SortByStartTime SortKey = "start_time"
	SortByEndTime   SortKey = "end_time"
	SortByDuration  SortKey = "duration"
)

// sortRing fixes the cycle order. Next() walks it with wrap-around.
var sortRing = []SortKey{
	SortByID,
	SortByName,
	SortByStatus,
	SortByStartTime,
	SortByEndTime,
	SortByDuration,
}

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	for _, s := range sortRing {
		if s == k {
			return true
		}
	}
	return false
}

// Next returns the successor of k in the sort ring. Unknown keys reset to the
// start of the ring.
func (k SortKey) Next() SortKey {
	for i, s := range sortRing {
		if s == k {
			return sortRing[(i+1)%len(sortRing)]
		}
	}
	return sortRing[0]
}

// OrderClause returns the SQL ORDER BY expression for k.
//
// Every key sorts descending except status, which sorts ascending by its
// lifecycle ordinal. The asymmetry reproduces the behavior the machine
// operators rely on, so it is deliberate.
//
// The name key sorts on the joined plug_configs.name column; callers must
// join plug_configs when using it.
func (k SortKey) OrderClause() string {
	switch k {
	case SortByID:
		return "plug_jobs.id DESC"
	case SortByName:
		return "plug_configs.name DESC"
	case SortByStatus:
		return "CASE plug_jobs.status WHEN 'started' THEN 0 WHEN 'stopped' THEN 1 WHEN 'finished' THEN 2 WHEN 'failed' THEN 3 ELSE 4 END ASC"
	case SortByStartTime:
		return "plug_jobs.start_time DESC"
	case SortByEndTime:
		return "plug_jobs.end_time DESC"
	case SortByDuration:
		return "plug_jobs.duration DESC"
	}
	return "plug_jobs.start_time DESC"
}

// NeedsConfigJoin reports whether OrderClause references the joined config
// table.
func (k SortKey) NeedsConfigJoin() bool { return k == SortByName }
