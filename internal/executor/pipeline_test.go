package executor

import (
	"errors"
	"testing"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/grussorusso/faasrunner/utils"
	"golang.org/x/net/context"
)

func stages(n int) ([]*function.Function, []*experiment.Experiment) {
	fns := make([]*function.Function, n)
	exps := make([]*experiment.Experiment, n)
	for i := 0; i < n; i++ {
		fns[i] = testFunction(string(rune('a' + i)))
		exps[i] = testExperiment(2, 4, experiment.Payload{"stage": i})
	}
	return fns, exps
}

func TestPipelineRunsEveryStageInOrder(t *testing.T) {
	ex := testExecutor(t, newFakeFactory())
	fns, exps := stages(3)

	rs, err := ex.RunPipeline(context.Background(), fns, exps)
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 2*2*3, rs.Len())

	seen := make(map[string][]string)
	for _, r := range rs.Records() {
		key := r.Text(record.ThreadId) + "." + r.Text(record.RunId)
		seen[key] = append(seen[key], r.Text(record.PipelineStage))
	}
	utils.AssertEquals(t, 4, len(seen))
	for _, stages := range seen {
		utils.AssertSliceEquals(t, []string{"0", "1", "2"}, stages)
	}
}

func TestPipelinePassesPayloads(t *testing.T) {
	factory := newFakeFactory()
	ex := testExecutor(t, factory)
	fns, exps := stages(2)
	exps[0].Threads, exps[0].Runs = 1, 1
	exps[1].PassPayloads = true
	exps[1].Transitions = map[string]string{"fn": "from"}
	exps[1].Payloads = []experiment.Payload{{"fn": "mine"}}

	_, err := ex.RunPipeline(context.Background(), fns, exps)
	utils.AssertNil(t, err)

	second := factory.invokers["b"].payloads
	utils.AssertEquals(t, 1, len(second))
	utils.AssertEquals(t, "a", second[0]["from"].(string))
	utils.AssertEquals(t, "mine", second[0]["fn"].(string))
	_, carried := second[0]["in_stage"]
	utils.AssertTrue(t, carried)
}

func TestPipelineTransitionSkipsStages(t *testing.T) {
	factory := newFakeFactory()
	ex := testExecutor(t, factory)
	ex.Transition = func(index int, state *PipelineState) int {
		if index == 0 {
			return 2
		}
		return -1
	}
	fns, exps := stages(3)

	rs, err := ex.RunPipeline(context.Background(), fns, exps)
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 8, rs.Len())
	_, called := factory.invokers["b"]
	utils.AssertFalse(t, called)
}

func TestPipelineTransitionLimit(t *testing.T) {
	factory := newFakeFactory()
	ex := testExecutor(t, factory)
	ex.MaxTransitions = 5
	ex.Transition = func(index int, state *PipelineState) int { return 0 }
	fns, exps := stages(2)
	exps[0].Threads, exps[0].Runs = 1, 1

	rs, err := ex.RunPipeline(context.Background(), fns, exps)
	utils.AssertTrue(t, errors.Is(err, ErrPipelineDidNotTerminate))
	utils.AssertEquals(t, 5, rs.Len())
}

func TestPipelineNeedsMatchingExperiments(t *testing.T) {
	ex := testExecutor(t, newFakeFactory())
	fns, exps := stages(2)
	_, err := ex.RunPipeline(context.Background(), fns, exps[:1])
	utils.AssertEquals(t, ErrMismatchedPipeline, err)
}

func TestPipelineInvokersFollowCallAsync(t *testing.T) {
	factory := newFakeFactory()
	ex := testExecutor(t, factory)
	fns, exps := stages(3)
	fns[1], fns[2] = fns[0], fns[0]
	exps[0].Threads, exps[0].Runs = 1, 2
	exps[1].CallAsync = true

	rs, err := ex.RunPipeline(context.Background(), fns, exps)
	utils.AssertNil(t, err)
	utils.AssertEquals(t, 6, rs.Len())
	utils.AssertSliceEquals(t, []bool{false, true}, factory.async)
}
