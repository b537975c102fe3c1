package record

import (
	"fmt"
	"math"

	"github.com/grussorusso/faasrunner/utils"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrMissingVersion = errors.New("response does not report a version")

// Meta describes the invocation a raw response belongs to.
type Meta struct {
	Thread        int
	Run           int
	Stage         int // negative outside of pipelines
	Payload       string
	RoundTripTime float64 // milliseconds
	Endpoint      string
}

// PostProcess parses a raw response and annotates it with the invocation
// metadata. When requireVersion is set, a well-formed response without a
// version attribute is returned together with ErrMissingVersion: it can still
// be passed along a pipeline but must not be collected.
func PostProcess(raw string, meta Meta, requireVersion bool) (*Record, error) {
	r, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	r.Set(ThreadId, IntValue(meta.Thread))
	r.Set(RunId, IntValue(meta.Run))
	if meta.Stage >= 0 {
		r.Set(PipelineStage, IntValue(meta.Stage))
	}
	r.Set(All, StringValue("Final Results:"))
	r.Set(RoundTripTime, FloatValue(meta.RoundTripTime))
	r.Set(Payload, StringValue(meta.Payload))

	if runtime, ok := r.Get(Runtime); ok {
		if d, ok := runtime.Decimal(); ok {
			rtt := decimal.NewFromFloat(meta.RoundTripTime)
			latency, _ := rtt.Sub(d.Truncate(0)).Round(2).Float64()
			r.Set(Latency, FloatValue(latency))
		}
	}

	if r.Has(CpuType) && r.Has(CpuModel) {
		r.Set(CpuType, StringValue(fmt.Sprintf("%s - Model %s", r.Text(CpuType), r.Text(CpuModel))))
	}

	if !r.Has(Platform) && meta.Endpoint != "" {
		r.Set(Endpoint, StringValue(meta.Endpoint))
	}

	if requireVersion && !r.Has(Version) {
		return r, ErrMissingVersion
	}
	return r, nil
}

// ElapsedMillis converts seconds to milliseconds rounded to 2 decimals.
func ElapsedMillis(seconds float64) float64 {
	return math.Round(seconds*100000) / 100
}

// HasVersion probes a raw response without fully parsing it.
func HasVersion(raw string) bool {
	return utils.JsonHasKey([]byte(raw), Version)
}
