package orchestrator

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/executor"
	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/internal/report"
	"github.com/grussorusso/faasrunner/internal/store"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Orchestrator runs a whole experiment: every memory setting, every
// iteration, and the reports of each.
type Orchestrator struct {
	Executor  *executor.Executor
	Publisher Publisher
	Store     store.Store
	DumpRuns  bool
	Sleep     func(time.Duration)
}

func New(ex *executor.Executor, publisher Publisher, st store.Store) *Orchestrator {
	return &Orchestrator{
		Executor:  ex,
		Publisher: publisher,
		Store:     st,
		DumpRuns:  config.GetBool(config.REPORT_DUMP_RUNS, false),
		Sleep:     time.Sleep,
	}
}

func (o *Orchestrator) sleep(seconds float64) {
	if seconds > 0 && o.Sleep != nil {
		o.Sleep(time.Duration(seconds * float64(time.Second)))
	}
}

// Run executes the experiments against the functions and writes the reports
// in outDir. Two or more functions with as many experiments form a pipeline;
// otherwise the first experiment drives every function concurrently.
// Failed iterations do not stop the experiment: their errors are returned
// together at the end.
func (o *Orchestrator) Run(ctx context.Context, functions []*function.Function, experiments []*experiment.Experiment, outDir string) error {
	if len(functions) == 0 || len(experiments) == 0 {
		return errors.New("at least one function and one experiment are needed")
	}
	exps := make([]*experiment.Experiment, len(experiments))
	for i, e := range experiments {
		exps[i] = e.Clone()
		exps[i].PreparePayloads()
	}
	exp := exps[0]
	fn := functions[0]
	if err := exp.Validate(); err != nil {
		return err
	}

	combine := exp.CombineSheets
	if combine && (exp.WarmupBuffer > exp.Iterations || exp.Iterations == 1) {
		logrus.Warn("Conflicting experiment parameters: combineSheets disabled. Either warmupBuffer > iterations or iterations == 1")
		combine = false
	}
	pipeline := len(exps) > 1 && len(functions) > 1 && len(exps) == len(functions)

	var result *multierror.Error
	for _, mem := range exp.Memory() {
		if mem != 0 {
			logrus.Infof("Setting memory value to: %dMBs...", mem)
			err := o.Publisher.SetMemory(ctx, fn, mem)
			if errors.Is(err, ErrMemoryUnsupported) {
				logrus.Warnf("%s: %v", fn.Platform, err)
			} else if err != nil {
				logrus.Errorf("Memory not changed: %v", err)
				result = multierror.Append(result, errors.Wrapf(err, "%dMBs", mem))
			}
		} else {
			logrus.Info("Skipping setting memory value.")
		}
		o.sleep(exp.SleepTime)

		iterations := make([][]*record.Record, exp.Iterations)
		for i := 0; i < exp.Iterations; i++ {
			logrus.Infof("Running test %d", i)
			var rs *executor.ResultSet
			var err error
			if pipeline {
				logrus.Infof("Running in pipeline mode: %v", functions)
				rs, err = o.Executor.RunPipeline(ctx, functions, exps)
			} else {
				rs, err = o.Executor.Run(ctx, functions, exp)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return multierror.Append(result, ctxErr)
			}
			if err != nil {
				logrus.Errorf("Test %d at %dMBs: %v", i, mem, err)
				result = multierror.Append(result, errors.Wrapf(err, "%dMBs run %d", mem, i))
			}

			if rs != nil && rs.Len() > 0 {
				runs := rs.Records()
				iterations[i] = runs
				base := filepath.Join(outDir, fmt.Sprintf("%s-%s-%dMBs-run%d", fn.Name, exp.Name, mem, i))
				if err := o.save(ctx, base, store.Key(fn.Name, exp.Name, mem, i), runs, exp); err != nil {
					result = multierror.Append(result, err)
				}
			}
			o.sleep(exp.SleepTime)
		}

		if combine {
			logrus.Info("Generating combined report")
			combined := combineIterations(iterations, exp.WarmupBuffer)
			base := filepath.Join(outDir, fmt.Sprintf("%s-%s-%dMBs-COMBINED", fn.Name, exp.Name, mem))
			if err := report.WriteFile(base, report.Generate(combined, exp), nil, false); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	logrus.Info("All tests complete!")
	return result.ErrorOrNil()
}

func (o *Orchestrator) save(ctx context.Context, base, key string, runs []*record.Record, exp *experiment.Experiment) error {
	logrus.Info("Test complete! Generating report...")
	rep := report.Generate(runs, exp)
	logrus.Debug(rep.String())
	if err := report.WriteFile(base, rep, runs, o.DumpRuns); err != nil {
		return err
	}
	logrus.Infof("Report written to %s.csv", base)
	o.Executor.Progress.Remove()

	if err := o.Store.Save(ctx, key, runs); err != nil {
		logrus.Warnf("Could not archive %s: %v", key, err)
		return errors.Wrapf(err, "archive %s", key)
	}
	return nil
}

// combineIterations merges the runs of the iterations after the warmup ones,
// tagging each run with its iteration.
func combineIterations(iterations [][]*record.Record, warmup int) []*record.Record {
	combined := make([]*record.Record, 0)
	for i, runs := range iterations {
		if i < warmup {
			continue
		}
		for _, r := range runs {
			c := r.Clone()
			c.Set(record.Iteration, record.IntValue(i))
			if c.Has(record.VmId) {
				c.Set(record.VmIdIteration, record.StringValue(fmt.Sprintf("%s[%d]", c.Text(record.VmId), i)))
			}
			combined = append(combined, c)
		}
	}
	return combined
}
