package bench

import (
	"fmt"

	"github.com/edgebench/edgebench/pkg/model"
)

// Emitter is an interface for observing benchmark progress. All callbacks
// receive copies of the runner's state, so implementations may retain them.
type Emitter interface {
	// OnRunStart is called once before the first round.
	OnRunStart(endpoints, runCount int)
	// OnRoundStart is called when a round begins, with the freshly published
	// record holding a Pending placeholder per endpoint.
	OnRoundStart(record *model.RunRecord)
	// OnMeasurement is called as each endpoint's measurement resolves.
	OnMeasurement(runID int, endpointID string, result model.MeasurementResult)
	// OnRoundComplete is called when every endpoint in a round has resolved.
	OnRoundComplete(record *model.RunRecord)
	// OnError is called on orchestration-fatal errors.
	OnError(err error)
	// OnSummary is called with the aggregate statistics after the last
	// round.
	OnSummary(summary *model.Summary)
}

// HumanReadable prints human-readable progress to stdout. It can be
// configured to include debug output, too.
type HumanReadable struct {
	Debug bool
}

// OnRunStart prints the run parameters.
func (HumanReadable) OnRunStart(endpoints, runCount int) {
	fmt.Printf("Measuring %d endpoints over %d rounds (round 1 is warm-up)\n",
		endpoints, runCount)
}

// OnRoundStart prints the round number.
func (HumanReadable) OnRoundStart(record *model.RunRecord) {
	fmt.Printf("Round %d:\n", record.RunID)
}

// OnMeasurement prints one resolved measurement.
func (HumanReadable) OnMeasurement(runID int, endpointID string, result model.MeasurementResult) {
	if result.Failed() {
		fmt.Printf("  %s: error: %s\n", endpointID, result.Error)
		return
	}
	server := "n/a"
	if result.ServerTimeMs != nil {
		server = fmt.Sprintf("%.2fms", *result.ServerTimeMs)
	}
	fmt.Printf("  %s: client %.2fms, server %s (%s)\n",
		endpointID, *result.ClientTimeMs, server, result.Binding)
}

// OnRoundComplete does nothing: per-measurement output already covers it.
func (HumanReadable) OnRoundComplete(record *model.RunRecord) {
	// NOTHING - measurements are printed individually in this Emitter.
}

// OnError prints orchestration-fatal errors.
func (HumanReadable) OnError(err error) {
	fmt.Printf("benchmark aborted: %v\n", err)
}

// OnSummary prints the per-endpoint averages and best/worst markers.
func (HumanReadable) OnSummary(summary *model.Summary) {
	fmt.Println()
	fmt.Println("Averages over post-warm-up rounds:")
	for id, stat := range summary.Stats {
		client, server := "n/a", "n/a"
		if stat.AvgClientTimeMs != nil {
			client = fmt.Sprintf("%.2fms", *stat.AvgClientTimeMs)
		}
		if stat.AvgServerTimeMs != nil {
			server = fmt.Sprintf("%.2fms", *stat.AvgServerTimeMs)
		}
		marker := ""
		switch id {
		case summary.BestClient:
			marker = " (best)"
		case summary.WorstClient:
			marker = " (worst)"
		}
		fmt.Printf("  %s: client %s, server %s%s\n", id, client, server, marker)
	}
}

// Checks that HumanReadable implements Emitter.
var _ Emitter = &HumanReadable{}

type multiEmitter []Emitter

// MultiEmitter returns an Emitter that forwards every callback to all the
// given emitters in order.
func MultiEmitter(emitters ...Emitter) Emitter {
	return multiEmitter(emitters)
}

func (m multiEmitter) OnRunStart(endpoints, runCount int) {
	for _, e := range m {
		e.OnRunStart(endpoints, runCount)
	}
}

func (m multiEmitter) OnRoundStart(record *model.RunRecord) {
	for _, e := range m {
		e.OnRoundStart(record)
	}
}

func (m multiEmitter) OnMeasurement(runID int, endpointID string, result model.MeasurementResult) {
	for _, e := range m {
		e.OnMeasurement(runID, endpointID, result)
	}
}

func (m multiEmitter) OnRoundComplete(record *model.RunRecord) {
	for _, e := range m {
		e.OnRoundComplete(record)
	}
}

func (m multiEmitter) OnError(err error) {
	for _, e := range m {
		e.OnError(err)
	}
}

func (m multiEmitter) OnSummary(summary *model.Summary) {
	for _, e := range m {
		e.OnSummary(summary)
	}
}
