package executor

import (
	"encoding/json"
	"fmt"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/invoker"
	"github.com/grussorusso/faasrunner/internal/logging"
	"github.com/grussorusso/faasrunner/internal/metrics"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/internal/scheduler"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

var ErrAllRequestsFailed = errors.New("all requests failed")
var ErrNoFunctions = errors.New("no function to call")

// Executor fans out the calls of an experiment and collects the responses.
type Executor struct {
	Factory        invoker.Factory
	Progress       *Progress
	Failures       *Failures
	RequireVersion bool
	// Transition drives pipelines; nil means stages run in order.
	Transition Transition
	// MaxTransitions bounds the stages of a single pipeline pass; 0 means no bound.
	MaxTransitions int
}

// New returns an Executor configured from the tool configuration.
func New(factory invoker.Factory) *Executor {
	return &Executor{
		Factory:        factory,
		Progress:       NewProgress(config.GetString(config.PROGRESS_FILE, DefaultProgressFile)),
		Failures:       NewFailures(),
		RequireVersion: config.GetBool(config.REQUIRE_VERSION, true),
		MaxTransitions: config.GetInt(config.PIPELINE_MAX_TRANSITIONS, 0),
	}
}

// call is a single invocation to perform.
type call struct {
	function *function.Function
	target   function.Target
	inv      invoker.Invoker
	thread   int
	run      int
	stage    int
	payload  experiment.Payload
}

func (c *call) id() string {
	id := fmt.Sprintf("%s:%d.%d", c.function.Name, c.thread, c.run)
	if c.stage >= 0 {
		id += fmt.Sprintf(".%d", c.stage)
	}
	return id
}

// Run calls every function with threads concurrent workers, each performing
// runs/threads calls, and blocks until all of them are done. The worker of
// thread i for the j-th function is tagged with thread id i*len(functions)+j.
func (e *Executor) Run(ctx context.Context, functions []*function.Function, exp *experiment.Experiment) (*ResultSet, error) {
	if len(functions) == 0 {
		return nil, ErrNoFunctions
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	perThread := exp.RunsPerThread()
	slices, err := scheduler.Schedule(exp.Payloads, exp.Threads*len(functions), perThread, exp.ShufflePayloads, exp.RandomSeed)
	if err != nil {
		return nil, err
	}

	targets := make([]function.Target, len(functions))
	invokers := make([]invoker.Invoker, len(functions))
	for j, f := range functions {
		targets[j] = f.Target(exp.CallWithCLI)
		invokers[j], err = e.Factory(targets[j], exp.CallAsync)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot call function %s", f.Name)
		}
	}

	e.Progress.Start(exp.Name, exp.Threads*len(functions)*perThread)
	results := NewResultSet()
	var g errgroup.Group
	for i := 0; i < exp.Threads; i++ {
		for j := range functions {
			// each worker has its own thread id, so run and thread ids
			// identify a record even when several functions are called
			thread := i*len(functions) + j
			slot := slices[thread]
			j := j
			g.Go(func() error {
				for run, payload := range slot {
					if err := ctx.Err(); err != nil {
						return err
					}
					c := &call{function: functions[j], target: targets[j], inv: invokers[j],
						thread: thread, run: run, stage: -1, payload: payload}
					if r, err := e.invoke(ctx, c); err == nil {
						e.collect(results, exp, r)
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	if results.Len() == 0 {
		return results, ErrAllRequestsFailed
	}
	return results, nil
}

// invoke performs a call and post-processes its response. A record is
// returned along with ErrMissingVersion when the response is well formed but
// not collectable.
func (e *Executor) invoke(ctx context.Context, c *call) (*record.Record, error) {
	log := logging.ForRun(c.thread, c.run, c.stage).WithField("function", c.function.Name)
	payload, err := json.Marshal(c.payload)
	if err != nil {
		e.fail(c, err)
		log.Errorf("Could not encode payload: %v", err)
		return nil, err
	}
	log.Debugf("Call payload: %s", payload)

	raw, elapsed, err := c.inv.Invoke(ctx, c.payload)
	if err != nil {
		e.fail(c, err)
		log.WithField("payload", string(payload)).Errorf("Run failed: %v", err)
		return nil, err
	}

	r, err := record.PostProcess(raw, record.Meta{
		Thread:        c.thread,
		Run:           c.run,
		Stage:         c.stage,
		Payload:       string(payload),
		RoundTripTime: elapsed,
		Endpoint:      c.target.Endpoint,
	}, e.RequireVersion)
	if err != nil {
		e.fail(c, err)
		log.WithField("payload", string(payload)).Errorf("Run failed: %v. Response: %s", err, raw)
		return r, err
	}
	log.Infof("Run %d.%d successful.", c.thread, c.run)
	return r, nil
}

func (e *Executor) collect(results *ResultSet, exp *experiment.Experiment, r *record.Record) {
	results.Append(r)
	e.Progress.Done()
	metrics.ObserveCollected(exp.Name)
}

func (e *Executor) fail(c *call, err error) {
	e.Failures.Add(c.id(), err)
	e.Progress.Fail()
}
