package executor

import (
	"sort"
	"sync"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/invoker"
	"github.com/grussorusso/faasrunner/internal/logging"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/internal/scheduler"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

var ErrMismatchedPipeline = errors.New("pipelines need as many experiments as functions")
var ErrPipelineDidNotTerminate = errors.New("pipeline did not terminate")

// PipelineState is what a transition can inspect and rewrite between two
// stages of a pass. Each worker owns its state.
type PipelineState struct {
	Functions   []*function.Function
	Experiments []*experiment.Experiment
	// Payloads holds the payload of every stage for the current pass.
	Payloads []experiment.Payload
	// Last is the record produced by the stage just executed, nil if it failed.
	Last *record.Record
}

// Transition returns the index of the next stage. The pass ends when the
// index falls outside of the stages.
type Transition func(index int, state *PipelineState) int

// Linear runs every stage once, in order.
func Linear(index int, _ *PipelineState) int {
	return index + 1
}

// RunPipeline chains functions[i] with experiments[i]. The first experiment
// sets threads, runs and transport; each thread performs runs/threads passes
// over the stages.
func (e *Executor) RunPipeline(ctx context.Context, functions []*function.Function, experiments []*experiment.Experiment) (*ResultSet, error) {
	if len(functions) == 0 {
		return nil, ErrNoFunctions
	}
	if len(functions) != len(experiments) {
		return nil, ErrMismatchedPipeline
	}
	master := experiments[0]
	if err := master.Validate(); err != nil {
		return nil, err
	}
	perThread := master.RunsPerThread()

	// stagePayloads[stage][thread][pass]
	stagePayloads := make([][][]experiment.Payload, len(experiments))
	for i, exp := range experiments {
		slices, err := scheduler.Schedule(exp.Payloads, master.Threads, perThread, exp.ShufflePayloads, exp.RandomSeed)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d", i)
		}
		stagePayloads[i] = slices
	}

	transition := e.Transition
	if transition == nil {
		transition = Linear
	}

	e.Progress.Start(master.Name, master.Threads*perThread*len(functions))
	results := NewResultSet()
	var mtx sync.Mutex
	var passErrors *multierror.Error

	var g errgroup.Group
	for i := 0; i < master.Threads; i++ {
		w := &pipelineWorker{
			executor:   e,
			thread:     i,
			master:     master,
			transition: transition,
			invokers:   make(map[invokerKey]invoker.Invoker),
			results:    results,
		}
		g.Go(func() error {
			for pass := 0; pass < perThread; pass++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				state := &PipelineState{
					Functions:   append([]*function.Function(nil), functions...),
					Experiments: append([]*experiment.Experiment(nil), experiments...),
					Payloads:    make([]experiment.Payload, len(functions)),
				}
				for s := range stagePayloads {
					state.Payloads[s] = stagePayloads[s][w.thread][pass]
				}
				if err := w.pass(ctx, pass, state); err != nil {
					mtx.Lock()
					passErrors = multierror.Append(passErrors, err)
					mtx.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	if results.Len() == 0 {
		return results, ErrAllRequestsFailed
	}
	return results, passErrors.ErrorOrNil()
}

type pipelineWorker struct {
	executor   *Executor
	thread     int
	master     *experiment.Experiment
	transition Transition
	invokers   map[invokerKey]invoker.Invoker
	results    *ResultSet
}

type invokerKey struct {
	target function.Target
	async  bool
}

func (w *pipelineWorker) invoker(f *function.Function, exp *experiment.Experiment) (function.Target, invoker.Invoker, error) {
	target := f.Target(w.master.CallWithCLI)
	key := invokerKey{target: target, async: exp.CallAsync}
	if inv, ok := w.invokers[key]; ok {
		return target, inv, nil
	}
	inv, err := w.executor.Factory(target, exp.CallAsync)
	if err != nil {
		return target, nil, errors.Wrapf(err, "cannot call function %s", f.Name)
	}
	w.invokers[key] = inv
	return target, inv, nil
}

// pass runs the stages of one pipeline pass, starting from the first one.
func (w *pipelineWorker) pass(ctx context.Context, pass int, state *PipelineState) error {
	var passOn *record.Record
	transitions := 0
	for i := 0; i >= 0 && i < len(state.Functions); {
		if limit := w.executor.MaxTransitions; limit > 0 && transitions >= limit {
			logging.ForRun(w.thread, pass, i).Errorf("Pipeline stopped after %d stages", transitions)
			return errors.Wrapf(ErrPipelineDidNotTerminate, "thread %d pass %d", w.thread, pass)
		}
		transitions++

		f := state.Functions[i]
		exp := w.master
		if i < len(state.Experiments) {
			exp = state.Experiments[i]
		}
		var payload experiment.Payload
		if i < len(state.Payloads) {
			payload = state.Payloads[i]
		}
		if exp.PassPayloads {
			payload = carry(passOn, payload, exp.Transitions)
		}

		c := &call{function: f, thread: w.thread, run: pass, stage: i, payload: payload}
		var err error
		c.target, c.inv, err = w.invoker(f, exp)
		if err != nil {
			return err
		}

		r, err := w.executor.invoke(ctx, c)
		if err == nil {
			w.executor.collect(w.results, exp, r)
		}
		passOn = r
		state.Last = r
		i = w.transition(i, state)
	}
	return nil
}

// carry builds the payload of a stage from the record of the previous one.
// Every attribute of the record is carried, transitions copy some of them
// under a new name, and the stage's own payload wins on collisions.
func carry(passOn *record.Record, payload experiment.Payload, transitions map[string]string) experiment.Payload {
	stage := scheduler.Copy(payload)
	if passOn == nil {
		return stage
	}
	sources := make([]string, 0, len(transitions))
	for src := range transitions {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		if v, ok := passOn.Get(src); ok {
			stage[transitions[src]] = v.Interface()
		}
	}
	return experiment.Merge(passOn.ToMap(), stage)
}
