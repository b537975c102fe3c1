package scheduler

import (
	"fmt"
	"testing"

	"github.com/grussorusso/faasrunner/internal/experiment"
	u "github.com/grussorusso/faasrunner/utils"
)

func payloadsOf(n int) []experiment.Payload {
	out := make([]experiment.Payload, n)
	for i := range out {
		out[i] = experiment.Payload{"x": i + 1}
	}
	return out
}

func flatten(slices [][]experiment.Payload) []string {
	out := make([]string, 0)
	for _, s := range slices {
		for _, p := range s {
			out = append(out, fmt.Sprintf("%v", p["x"]))
		}
	}
	return out
}

func TestScheduleRepeatsWithoutShuffle(t *testing.T) {
	slices, err := Schedule(payloadsOf(2), 2, 2, false, 42)
	u.AssertNil(t, err)
	u.AssertEquals(t, 2, len(slices))
	u.AssertSliceEquals(t, []string{"1", "2"}, flatten(slices[:1]))
	u.AssertSliceEquals(t, []string{"1", "2"}, flatten(slices[1:]))
}

func TestScheduleShape(t *testing.T) {
	for _, k := range []int{1, 3, 7, 20} {
		slices, err := Schedule(payloadsOf(k), 4, 3, true, 7)
		u.AssertNil(t, err)
		u.AssertEquals(t, 4, len(slices))
		for _, s := range slices {
			u.AssertEquals(t, 3, len(s))
			for _, p := range s {
				x := p["x"].(int)
				u.AssertTrueMsg(t, x >= 1 && x <= k, fmt.Sprintf("payload %d not drawn from the set of %d", x, k))
			}
		}
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	a, err := Schedule(payloadsOf(10), 3, 3, true, 42)
	u.AssertNil(t, err)
	b, err := Schedule(payloadsOf(10), 3, 3, true, 42)
	u.AssertNil(t, err)
	u.AssertSliceEquals(t, flatten(a), flatten(b))
}

func TestScheduleShuffleUsesSeed(t *testing.T) {
	a, _ := Schedule(payloadsOf(50), 1, 50, true, 1)
	b, _ := Schedule(payloadsOf(50), 1, 50, true, 2)
	u.AssertFalse(t, fmt.Sprint(flatten(a)) == fmt.Sprint(flatten(b)))
}

func TestScheduleRejectsEmptyPayloads(t *testing.T) {
	_, err := Schedule(nil, 2, 2, false, 42)
	u.AssertEquals(t, experiment.ErrEmptyPayloads, err)
}

func TestScheduleCopiesPayloads(t *testing.T) {
	source := []experiment.Payload{{"x": 1, "nested": map[string]interface{}{"y": 1}}}
	slices, err := Schedule(source, 2, 1, false, 42)
	u.AssertNil(t, err)
	slices[0][0]["x"] = 99
	slices[0][0]["nested"].(map[string]interface{})["y"] = 99
	u.AssertEquals(t, 1, slices[1][0]["x"].(int))
	u.AssertEquals(t, 1, source[0]["x"].(int))
	u.AssertEquals(t, 1, source[0]["nested"].(map[string]interface{})["y"].(int))
}
