package bench

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/edgebench/edgebench/pkg/model"
	"github.com/edgebench/edgebench/pkg/spec"
)

// ErrRunInProgress is returned by Run when a run is already in progress on
// the same Runner.
var ErrRunInProgress = errors.New("a benchmark run is already in progress")

// measurer is the part of Measurer the Runner depends on.
type measurer interface {
	Measure(ctx context.Context, url string) model.MeasurementResult
}

// Config is the configuration for a Runner.
type Config struct {
	// RunCount is the number of rounds. Zero means spec.DefaultRunCount.
	RunCount int

	// InterRoundDelay is the pause before every round but the first. A
	// negative value means no delay; zero means spec.DefaultInterRoundDelay.
	InterRoundDelay time.Duration

	// Timeout is the per-request timeout of the default Measurer. Zero
	// means spec.DefaultMeasureTimeout.
	Timeout time.Duration

	// UserAgent is sent with every measurement request.
	UserAgent string

	// Emitter observes the run's progress. It can be overridden to provide
	// a custom output; nil disables emission.
	Emitter Emitter

	// Seed seeds the shuffle's random source. Zero means seeding from the
	// current time.
	Seed int64
}

// RunResult is the complete output of one benchmark run.
type RunResult struct {
	// StartTime is the run's start time.
	StartTime time.Time
	// EndTime is the run's end time.
	EndTime time.Time
	// Rounds holds one RunRecord per executed round, in order.
	Rounds []*model.RunRecord
	// Summary holds the per-endpoint aggregate statistics.
	Summary *model.Summary
}

// Archive converts this RunResult to its archival form.
func (r *RunResult) Archive(gitShortCommit, version, measurementID string) *model.ArchivalData {
	rounds := make([]model.ArchivalRound, 0, len(r.Rounds))
	for _, record := range r.Rounds {
		rounds = append(rounds, record.Archive())
	}
	archive := &model.ArchivalData{
		GitShortCommit: gitShortCommit,
		Version:        version,
		MeasurementID:  measurementID,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Rounds:         rounds,
	}
	if r.Summary != nil {
		archive.Summary = r.Summary.Archive()
	}
	return archive
}

// Runner executes benchmark runs against a Registry. A Runner owns the
// in-progress RunRecord sequence exclusively; observers only ever receive
// copies through the Emitter.
//
// Within a round, endpoints are measured strictly one at a time in shuffled
// order. Serializing the measurements keeps them from contending for
// client-side network concurrency, at the cost of a longer total run.
type Runner struct {
	config   Config
	registry *Registry
	measurer measurer
	rnd      *rand.Rand
	running  atomic.Bool
}

// NewRunner returns a Runner for the given registry. Zero-valued Config
// fields fall back to the package defaults.
func NewRunner(registry *Registry, config Config) *Runner {
	if config.RunCount == 0 {
		config.RunCount = spec.DefaultRunCount
	}
	if config.InterRoundDelay == 0 {
		config.InterRoundDelay = spec.DefaultInterRoundDelay
	}
	if config.Timeout == 0 {
		config.Timeout = spec.DefaultMeasureTimeout
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Runner{
		config:   config,
		registry: registry,
		measurer: NewMeasurer(config.Timeout, config.UserAgent),
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

// Run executes the configured number of rounds and returns the recorded
// rounds and their aggregate summary.
//
// Each round measures every registered endpoint exactly once, in a fresh
// uniformly-random permutation. Shuffling prevents systematic ordering bias,
// such as always warming a connection pool right before testing it, from
// skewing one endpoint's apparent performance relative to another.
//
// A failed measurement never aborts the round or the run: it is recorded as
// an error-shaped result and the run continues. Only orchestration-level
// failures (an in-progress run on this Runner, context cancellation) abort
// the run and are returned as an error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	result, err := r.run(ctx)
	if err != nil {
		r.emitError(err)
		return nil, err
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context) (*RunResult, error) {
	r.emitRunStart()
	startTime := time.Now()
	rounds := make([]*model.RunRecord, 0, r.config.RunCount)

	for i := 0; i < r.config.RunCount; i++ {
		if i > 0 && r.config.InterRoundDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.config.InterRoundDelay):
			}
		}

		order := r.registry.Endpoints()
		r.rnd.Shuffle(len(order), func(a, b int) {
			order[a], order[b] = order[b], order[a]
		})

		// Publish the record with Pending placeholders immediately so
		// observers can follow the round incrementally.
		record := model.NewRunRecord(i+1, r.registry.IDs())
		rounds = append(rounds, record)
		r.emitRoundStart(record)

		for _, ep := range order {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result := r.measurer.Measure(ctx, ep.URL)
			record.Results[ep.ID] = result
			r.emitMeasurement(record.RunID, ep.ID, result)
		}
		r.emitRoundComplete(record)
	}

	result := &RunResult{
		StartTime: startTime,
		EndTime:   time.Now(),
		Rounds:    rounds,
	}
	if summary, ok := Summarize(rounds, r.config.RunCount); ok {
		result.Summary = summary
		r.emitSummary(summary)
	}
	return result, nil
}

func (r *Runner) emitRunStart() {
	if r.config.Emitter != nil {
		r.config.Emitter.OnRunStart(r.registry.Len(), r.config.RunCount)
	}
}

func (r *Runner) emitRoundStart(record *model.RunRecord) {
	if r.config.Emitter != nil {
		r.config.Emitter.OnRoundStart(record.Clone())
	}
}

func (r *Runner) emitMeasurement(runID int, endpointID string, result model.MeasurementResult) {
	if r.config.Emitter != nil {
		r.config.Emitter.OnMeasurement(runID, endpointID, result)
	}
}

func (r *Runner) emitRoundComplete(record *model.RunRecord) {
	if r.config.Emitter != nil {
		r.config.Emitter.OnRoundComplete(record.Clone())
	}
}

func (r *Runner) emitError(err error) {
	if r.config.Emitter != nil {
		r.config.Emitter.OnError(err)
	}
}

func (r *Runner) emitSummary(summary *model.Summary) {
	if r.config.Emitter != nil {
		r.config.Emitter.OnSummary(summary)
	}
}
