// Package model contains the data types produced and consumed by the
// edgebench benchmark: the wire envelope, per-measurement results, per-round
// records and aggregate statistics.
package model

import (
	"sort"
	"time"

	"github.com/edgebench/edgebench/pkg/spec"
)

// MeasurementResult is the outcome of measuring one endpoint once. A result
// starts as a Pending placeholder when a round begins and is replaced by a
// terminal value when the measurement completes; terminal results are never
// mutated.
type MeasurementResult struct {
	// ClientTimeMs is the wall-clock latency observed by the caller in
	// milliseconds, inclusive of network transit and all remote processing.
	// It is nil only while the measurement is pending.
	ClientTimeMs *float64 `json:"clientTimeMs"`

	// ServerTimeMs is the processing duration self-reported by the target
	// inside the response body. It is nil if the call failed or the target
	// omitted it.
	ServerTimeMs *float64 `json:"serverTimeMs"`

	// Binding is the backend identifier reported by the target, or a
	// sentinel (spec.BindingPending, spec.BindingError) when none is
	// available.
	Binding string `json:"binding"`

	// Error is the failure message, empty on success. Transport, HTTP-level
	// and structural failures set it, and so does an application-level error
	// passed through from the response body.
	Error string `json:"error,omitempty"`
}

// PendingResult returns the placeholder stored for every endpoint when a
// round starts.
func PendingResult() MeasurementResult {
	return MeasurementResult{Binding: spec.BindingPending}
}

// Pending reports whether this result is still the placeholder.
func (r MeasurementResult) Pending() bool {
	return r.ClientTimeMs == nil && r.Error == "" && r.Binding == spec.BindingPending
}

// Failed reports whether this result carries an error.
func (r MeasurementResult) Failed() bool {
	return r.Error != ""
}

// RunRecord holds the results of one round, keyed by endpoint ID. It is
// created with every endpoint mapped to a Pending placeholder and entries
// are replaced in place as measurements resolve.
type RunRecord struct {
	// RunID is the 1-based round sequence number.
	RunID int `json:"runId"`

	// Results maps endpoint IDs to their measurement for this round. It
	// always contains one entry per registered endpoint.
	Results map[string]MeasurementResult `json:"results"`
}

// NewRunRecord returns a RunRecord for the given round with a Pending
// placeholder for each of the given endpoint IDs.
func NewRunRecord(runID int, endpointIDs []string) *RunRecord {
	results := make(map[string]MeasurementResult, len(endpointIDs))
	for _, id := range endpointIDs {
		results[id] = PendingResult()
	}
	return &RunRecord{
		RunID:   runID,
		Results: results,
	}
}

// Clone returns a copy of this record that shares no state with the
// original. Emitters receive clones so observers never see in-place updates.
func (r *RunRecord) Clone() *RunRecord {
	results := make(map[string]MeasurementResult, len(r.Results))
	for id, res := range r.Results {
		results[id] = res
	}
	return &RunRecord{
		RunID:   r.RunID,
		Results: results,
	}
}

// AggregateStat holds the per-endpoint averages over the relevant rounds of
// a completed run. Either average is nil when no qualifying samples exist
// for that metric.
type AggregateStat struct {
	AvgClientTimeMs *float64 `json:"avgClientTimeMs"`
	AvgServerTimeMs *float64 `json:"avgServerTimeMs"`
}

// Summary is the aggregate output of a completed run: one AggregateStat per
// endpoint plus best/worst markers across endpoints. Marker fields are empty
// when no endpoint has a qualifying average for that metric.
type Summary struct {
	// Stats maps endpoint IDs to their aggregate statistics.
	Stats map[string]AggregateStat `json:"stats"`

	// BestClient and WorstClient are the endpoint IDs with the lowest and
	// highest average client time.
	BestClient  string `json:"bestClient,omitempty"`
	WorstClient string `json:"worstClient,omitempty"`

	// BestServer and WorstServer are the endpoint IDs with the lowest and
	// highest average server time.
	BestServer  string `json:"bestServer,omitempty"`
	WorstServer string `json:"worstServer,omitempty"`
}

// ArchivalData is the archival record of a completed benchmark run, written
// to disk as JSON. Maps are flattened into slices so a BigQuery schema can
// be inferred from this type.
type ArchivalData struct {
	// GitShortCommit is the Git commit (short form) of the running client
	// code.
	GitShortCommit string
	// Version is the symbolic version (if any) of the running client code.
	Version string

	// MeasurementID is the unique identifier of this benchmark run.
	MeasurementID string

	// StartTime is the run's start time.
	StartTime time.Time
	// EndTime is the run's end time.
	EndTime time.Time

	// Rounds holds one entry per executed round.
	Rounds []ArchivalRound

	// Summary holds the per-endpoint aggregate statistics, if the run
	// completed.
	Summary []ArchivalStat
}

// ArchivalRound is one round of an ArchivalData record.
type ArchivalRound struct {
	RunID   int
	Results []ArchivalMeasurement
}

// ArchivalMeasurement is one endpoint's measurement within an ArchivalRound.
type ArchivalMeasurement struct {
	EndpointID   string
	ClientTimeMs *float64
	ServerTimeMs *float64
	Binding      string
	Error        string
}

// ArchivalStat is one endpoint's aggregate entry within an ArchivalData
// record.
type ArchivalStat struct {
	EndpointID      string
	AvgClientTimeMs *float64
	AvgServerTimeMs *float64
	BestClient      bool
	WorstClient     bool
}

// Archive flattens a RunRecord for archival.
func (r *RunRecord) Archive() ArchivalRound {
	results := make([]ArchivalMeasurement, 0, len(r.Results))
	for id, res := range r.Results {
		results = append(results, ArchivalMeasurement{
			EndpointID:   id,
			ClientTimeMs: res.ClientTimeMs,
			ServerTimeMs: res.ServerTimeMs,
			Binding:      res.Binding,
			Error:        res.Error,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].EndpointID < results[j].EndpointID
	})
	return ArchivalRound{
		RunID:   r.RunID,
		Results: results,
	}
}

// Archive flattens a Summary for archival.
func (s *Summary) Archive() []ArchivalStat {
	stats := make([]ArchivalStat, 0, len(s.Stats))
	for id, stat := range s.Stats {
		stats = append(stats, ArchivalStat{
			EndpointID:      id,
			AvgClientTimeMs: stat.AvgClientTimeMs,
			AvgServerTimeMs: stat.AvgServerTimeMs,
			BestClient:      id == s.BestClient,
			WorstClient:     id == s.WorstClient,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].EndpointID < stats[j].EndpointID
	})
	return stats
}
