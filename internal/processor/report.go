package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/pauljones0/property-scanner/internal/models"
)

// Stage is a step of the scan state machine.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageFetchingAll Stage = "fetching_all"
	StageMerged      Stage = "merged"
	StageDeduped     Stage = "deduped"
	StageFiltered    Stage = "filtered"
	StageSorted      Stage = "sorted"
	StageNotified    Stage = "notified"
)

// SourceResult is the outcome of one adapter within a run.
type SourceResult struct {
	Source   models.Source `json:"source"`
	Count    int           `json:"count"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the source produced a usable batch.
func (r SourceResult) OK() bool {
	return r.Err == nil
}

// RunReport describes one completed scan.
type RunReport struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Stage    Stage     `json:"stage"`

	Sources []SourceResult `json:"sources"`

	Merged      int `json:"merged"`
	New         int `json:"new"`
	AlreadySeen int `json:"already_seen"`
	FilteredOut int `json:"filtered_out"`
	Notified    int `json:"notified"`

	Listings []models.Listing `json:"listings"`

	NotifyErr   error   `json:"-"`
	PersistErrs []error `json:"-"`
}

// FailedSources returns the sources that produced no batch.
func (r *RunReport) FailedSources() []models.Source {
	var out []models.Source
	for _, s := range r.Sources {
		if !s.OK() {
			out = append(out, s.Source)
		}
	}
	return out
}

// AllSourcesFailed reports whether at least one source ran and none succeeded.
func (r *RunReport) AllSourcesFailed() bool {
	return len(r.Sources) > 0 && len(r.FailedSources()) == len(r.Sources)
}

// Summary renders a one-line account of the run.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "merged=%d new=%d already_seen=%d filtered_out=%d notified=%d",
		r.Merged, r.New, r.AlreadySeen, r.FilteredOut, r.Notified)

	parts := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.OK() {
			parts = append(parts, fmt.Sprintf("%s:%d", s.Source, s.Count))
		} else {
			parts = append(parts, fmt.Sprintf("%s:failed(%v)", s.Source, s.Err))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " sources=[%s]", strings.Join(parts, ", "))
	}
	if r.NotifyErr != nil {
		fmt.Fprintf(&b, " notify_error=%q", r.NotifyErr.Error())
	}
	if n := len(r.PersistErrs); n > 0 {
		fmt.Fprintf(&b, " persist_errors=%d", n)
	}
	return b.String()
}

// SourceErrors returns the error text of each failed source, keyed by source,
// for JSON rendering.
func (r *RunReport) SourceErrors() map[models.Source]string {
	out := make(map[models.Source]string)
	for _, s := range r.Sources {
		if s.Err != nil {
			out[s.Source] = s.Err.Error()
		}
	}
	return out
}
