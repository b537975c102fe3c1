package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/grussorusso/faasrunner/internal/executor"
	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/invoker"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/internal/store"
	"github.com/grussorusso/faasrunner/utils"
	"golang.org/x/net/context"
)

type vmInvoker struct {
	fail bool
}

func (v *vmInvoker) Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error) {
	if v.fail {
		return "", 0, fmt.Errorf("unreachable")
	}
	out, _ := json.Marshal(map[string]interface{}{
		"version": 0.5, "runtime": 5, "vmID": "vm1", "cpuType": "Intel", "name": payload["name"]})
	return string(out), 10, nil
}

type fakePublisher struct {
	mtx      sync.Mutex
	memories []int
	err      error
}

func (p *fakePublisher) SetMemory(ctx context.Context, f *function.Function, memory int) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.memories = append(p.memories, memory)
	return p.err
}

type memoryStore struct {
	mtx  sync.Mutex
	keys []string
}

func (m *memoryStore) Save(ctx context.Context, key string, runs []*record.Record) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *memoryStore) Load(ctx context.Context, key string) ([]*record.Record, error) {
	return nil, nil
}

func testOrchestrator(t *testing.T, inv invoker.Invoker) (*Orchestrator, *fakePublisher, *memoryStore) {
	ex := &executor.Executor{
		Factory: func(function.Target, bool) (invoker.Invoker, error) {
			return inv, nil
		},
		Progress:       executor.NewProgress(filepath.Join(t.TempDir(), executor.DefaultProgressFile)),
		Failures:       executor.NewFailures(),
		RequireVersion: true,
	}
	pub := &fakePublisher{}
	st := &memoryStore{}
	o := New(ex, pub, st)
	o.Sleep = nil
	return o, pub, st
}

func testExperiment() *experiment.Experiment {
	exp := experiment.Default()
	exp.Name = "exp"
	exp.Threads = 2
	exp.Runs = 4
	exp.Payloads = []experiment.Payload{{"name": "bob"}}
	exp.OutputGroups = []string{"zTenancy[vmID[iteration]]", "cpuType"}
	return exp
}

func hello() *function.Function {
	return &function.Function{Name: "hello", Platform: function.AWS, Endpoint: "http://localhost"}
}

func TestRunWritesEveryIteration(t *testing.T) {
	o, pub, st := testOrchestrator(t, &vmInvoker{})
	out := t.TempDir()
	exp := testExperiment()
	exp.MemorySettings = []int{128, 256}
	exp.Iterations = 2
	exp.CombineSheets = true
	exp.SleepTime = 1

	err := o.Run(context.Background(), []*function.Function{hello()}, []*experiment.Experiment{exp}, out)
	utils.AssertNil(t, err)
	utils.AssertSliceEquals(t, []int{128, 256}, pub.memories)
	utils.AssertEquals(t, 4, len(st.keys))
	utils.AssertEquals(t, store.Key("hello", "exp", 128, 0), st.keys[0])

	for _, name := range []string{
		"hello-exp-128MBs-run0.csv", "hello-exp-128MBs-run1.csv", "hello-exp-128MBs-COMBINED.csv",
		"hello-exp-256MBs-run0.csv", "hello-exp-256MBs-run1.csv", "hello-exp-256MBs-COMBINED.csv",
	} {
		_, err := os.Stat(filepath.Join(out, name))
		utils.AssertNilMsg(t, err, name)
	}

	combined, err := os.ReadFile(filepath.Join(out, "hello-exp-128MBs-COMBINED.csv"))
	utils.AssertNil(t, err)
	utils.AssertContains(t, string(combined), "Successful Runs: 8\n")
	utils.AssertContains(t, string(combined), "\nCategory zTenancy[vmID[iteration]]:\n")
	utils.AssertContains(t, string(combined), "\nIntel - 4,8,")
}

func TestRunSkipsMemoryZero(t *testing.T) {
	o, pub, _ := testOrchestrator(t, &vmInvoker{})
	out := t.TempDir()

	err := o.Run(context.Background(), []*function.Function{hello()}, []*experiment.Experiment{testExperiment()}, out)
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 0, len(pub.memories))
	_, err = os.Stat(filepath.Join(out, "hello-exp-0MBs-run0.csv"))
	utils.AssertNil(t, err)
	_, err = os.Stat(filepath.Join(out, "hello-exp-0MBs-COMBINED.csv"))
	utils.AssertTrue(t, os.IsNotExist(err))
}

func TestRunReportsFailuresAndContinues(t *testing.T) {
	o, pub, st := testOrchestrator(t, &vmInvoker{fail: true})
	pub.err = fmt.Errorf("no credentials")
	out := t.TempDir()
	exp := testExperiment()
	exp.MemorySettings = []int{128, 256}

	err := o.Run(context.Background(), []*function.Function{hello()}, []*experiment.Experiment{exp}, out)
	utils.AssertNonNil(t, err)
	utils.AssertEquals(t, 2, len(pub.memories))
	utils.AssertEquals(t, 0, len(st.keys))
	utils.AssertErrorIs(t, err, executor.ErrAllRequestsFailed)
	entries, _ := os.ReadDir(out)
	utils.AssertEquals(t, 0, len(entries))
}

func TestRunUnsupportedMemoryIsNotAnError(t *testing.T) {
	o, pub, _ := testOrchestrator(t, &vmInvoker{})
	pub.err = ErrMemoryUnsupported
	exp := testExperiment()
	exp.MemorySettings = []int{128}

	err := o.Run(context.Background(), []*function.Function{hello()}, []*experiment.Experiment{exp}, t.TempDir())
	utils.AssertNil(t, err)
}

func TestRunPipeline(t *testing.T) {
	o, _, _ := testOrchestrator(t, &vmInvoker{})
	out := t.TempDir()
	second := &function.Function{Name: "world", Platform: function.AWS}

	err := o.Run(context.Background(), []*function.Function{hello(), second},
		[]*experiment.Experiment{testExperiment(), testExperiment()}, out)
	utils.AssertNil(t, err)
	data, err := os.ReadFile(filepath.Join(out, "hello-exp-0MBs-run0.csv"))
	utils.AssertNil(t, err)
	utils.AssertContains(t, string(data), record.PipelineStage)
	utils.AssertContains(t, string(data), "Successful Runs: 8\n")
}

func TestRunRejectsInvalidExperiment(t *testing.T) {
	o, _, _ := testOrchestrator(t, &vmInvoker{})
	exp := testExperiment()
	exp.Threads = 8
	err := o.Run(context.Background(), []*function.Function{hello()}, []*experiment.Experiment{exp}, t.TempDir())
	utils.AssertNonNil(t, err)
	err = o.Run(context.Background(), nil, []*experiment.Experiment{exp}, t.TempDir())
	utils.AssertNonNil(t, err)
}

func TestCombineIterations(t *testing.T) {
	r := record.New()
	r.Set(record.VmId, record.StringValue("vm"))
	combined := combineIterations([][]*record.Record{{r}, {r}, {r}}, 1)
	utils.AssertEquals(t, 2, len(combined))
	utils.AssertEquals(t, "vm[1]", combined[0].Text(record.VmIdIteration))
	utils.AssertEquals(t, "2", combined[1].Text(record.Iteration))
	utils.AssertFalse(t, r.Has(record.Iteration))
}
