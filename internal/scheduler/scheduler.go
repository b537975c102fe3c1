package scheduler

import (
	"fmt"
	"math/rand"

	"github.com/grussorusso/faasrunner/internal/experiment"
)

// Schedule distributes payloads to workers. The payload list is repeated
// until it holds at least workers*perWorker elements, optionally shuffled
// once with a generator seeded by seed, and cut in contiguous slices of
// perWorker payloads, in worker order. The same seed always yields the same
// assignment. Every scheduled payload is a private copy.
func Schedule(payloads []experiment.Payload, workers, perWorker int, shuffle bool, seed int64) ([][]experiment.Payload, error) {
	if len(payloads) == 0 {
		return nil, experiment.ErrEmptyPayloads
	}
	if workers < 0 || perWorker < 0 {
		return nil, fmt.Errorf("invalid schedule: %d workers, %d payloads per worker", workers, perWorker)
	}

	total := workers * perWorker
	expanded := make([]experiment.Payload, 0, total+len(payloads))
	expanded = append(expanded, payloads...)
	for len(expanded) < total {
		expanded = append(expanded, payloads...)
	}

	if shuffle {
		rnd := rand.New(rand.NewSource(seed))
		rnd.Shuffle(len(expanded), func(i, j int) {
			expanded[i], expanded[j] = expanded[j], expanded[i]
		})
	}

	slices := make([][]experiment.Payload, workers)
	for w := 0; w < workers; w++ {
		slice := make([]experiment.Payload, perWorker)
		for i := 0; i < perWorker; i++ {
			slice[i] = Copy(expanded[w*perWorker+i])
		}
		slices[w] = slice
	}
	return slices, nil
}

// Copy deep-copies a payload.
func Copy(p experiment.Payload) experiment.Payload {
	if p == nil {
		return experiment.Payload{}
	}
	out := make(experiment.Payload, len(p))
	for k, v := range p {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return Copy(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
