// Package pipeline wires every stage (4.A-4.P) into the ordered run the
// external trigger drives: scrape, persist article stubs, dedup, embed,
// select continuity candidates, cluster, and then per-cluster continuity
// decision, context building, synthesis generation, persona selection,
// persistence and knowledge-hub bookkeeping.
package pipeline

import "time"

// Mode selects which sources a run considers and how its output is
// persisted.
type Mode string

const (
	// ModeScrape runs the full registry (optionally narrowed to
	// RunRequest.Sources) through every stage, persisting its output.
	ModeScrape Mode = "scrape"
	// ModeTopic narrows the registry to sources whose category hint is
	// in RunRequest.Topics before running the same stages as ModeScrape.
	ModeTopic Mode = "topic"
	// ModeSimulation runs every stage for dry-run testing but persists
	// nothing: no article stubs, no syntheses, no knowledge-hub writes.
	ModeSimulation Mode = "simulation"
)

// RunRequest is the external trigger's start() payload (spec section 6).
type RunRequest struct {
	Mode                 Mode
	Sources              []string
	Topics               []string
	MaxArticlesPerSource int
}

// Status is the run's lifecycle state, reported by status().
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// RunResult is the current or most recently finished run's summary.
type RunResult struct {
	Mode       Mode      `json:"mode,omitempty"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	ArticlesFetched  int `json:"articles_fetched"`
	ArticlesDeduped  int `json:"articles_deduped"`
	ClustersFound    int `json:"clusters_found"`
	SynthesesCreated int `json:"syntheses_created"`

	Error string `json:"error,omitempty"`
}
