package bench

import (
	"github.com/edgebench/edgebench/pkg/model"
)

// Summarize computes the per-endpoint average client and server times over
// the given rounds, plus best/worst markers across endpoints.
//
// Round 1 is always excluded as warm-up. If fewer than runCount rounds
// exist (a run still in progress or aborted early), Summarize declines and
// returns ok=false: averages are only meaningful after a full completed
// run.
//
// Client and server averages are accumulated independently. An entry only
// contributes to a metric when its error is empty and the metric's value is
// present; a round missing a server time but carrying a valid client time
// still contributes to the client average. Zero qualifying samples leave
// that average nil.
//
// Summarize is a pure function of its inputs: calling it twice on the same
// rounds yields identical output.
func Summarize(rounds []*model.RunRecord, runCount int) (*model.Summary, bool) {
	if len(rounds) < runCount {
		return nil, false
	}

	type accumulator struct {
		clientSum   float64
		clientCount int
		serverSum   float64
		serverCount int
	}
	accs := make(map[string]*accumulator)

	for _, record := range rounds {
		if record.RunID == 1 {
			continue
		}
		for id, result := range record.Results {
			acc := accs[id]
			if acc == nil {
				acc = &accumulator{}
				accs[id] = acc
			}
			if result.Failed() || result.Pending() {
				continue
			}
			if result.ClientTimeMs != nil {
				acc.clientSum += *result.ClientTimeMs
				acc.clientCount++
			}
			if result.ServerTimeMs != nil {
				acc.serverSum += *result.ServerTimeMs
				acc.serverCount++
			}
		}
	}

	summary := &model.Summary{
		Stats: make(map[string]model.AggregateStat, len(accs)),
	}
	for id, acc := range accs {
		var stat model.AggregateStat
		if acc.clientCount > 0 {
			avg := acc.clientSum / float64(acc.clientCount)
			stat.AvgClientTimeMs = &avg
		}
		if acc.serverCount > 0 {
			avg := acc.serverSum / float64(acc.serverCount)
			stat.AvgServerTimeMs = &avg
		}
		summary.Stats[id] = stat
	}

	summary.BestClient, summary.WorstClient = minMax(summary.Stats,
		func(s model.AggregateStat) *float64 { return s.AvgClientTimeMs })
	summary.BestServer, summary.WorstServer = minMax(summary.Stats,
		func(s model.AggregateStat) *float64 { return s.AvgServerTimeMs })
	return summary, true
}

// minMax returns the endpoint IDs with the lowest and highest non-nil value
// of the selected metric. Ties are broken by endpoint ID so the output does
// not depend on map iteration order.
func minMax(stats map[string]model.AggregateStat,
	metric func(model.AggregateStat) *float64) (best, worst string) {
	var bestVal, worstVal float64
	for id, stat := range stats {
		v := metric(stat)
		if v == nil {
			continue
		}
		if best == "" || *v < bestVal || (*v == bestVal && id < best) {
			best, bestVal = id, *v
		}
		if worst == "" || *v > worstVal || (*v == worstVal && id < worst) {
			worst, worstVal = id, *v
		}
	}
	return best, worst
}
