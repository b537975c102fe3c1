package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/utils"
	"golang.org/x/net/context"
)

type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return "", nil
}

func deploySource(t *testing.T, functionName string) string {
	src := t.TempDir()
	utils.AssertNil(t, os.MkdirAll(filepath.Join(src, "deploy"), 0755))
	cfg := `{"functionName": "` + functionName + `", "memory": 256}`
	utils.AssertNil(t, os.WriteFile(filepath.Join(src, "deploy", "config.json"), []byte(cfg), 0644))
	return src
}

func TestPublisherAws(t *testing.T) {
	runner := &recordingRunner{}
	p := &CliPublisher{Runner: runner, AwsCli: "aws"}
	f := &function.Function{Name: "hello", Platform: function.AWS}

	utils.AssertNil(t, p.SetMemory(context.Background(), f, 512))
	utils.AssertEquals(t, 1, len(runner.calls))
	utils.AssertEquals(t, "aws lambda update-function-configuration --function-name hello --memory-size 512",
		strings.Join(runner.calls[0], " "))
}

func TestPublisherGoogle(t *testing.T) {
	runner := &recordingRunner{}
	p := &CliPublisher{Runner: runner, AwsCli: "aws"}
	src := deploySource(t, "hello")
	f := &function.Function{Name: "hello", Platform: function.Google, Source: src}

	utils.AssertNil(t, p.SetMemory(context.Background(), f, 1024))
	utils.AssertEquals(t, 1, len(runner.calls))
	utils.AssertSliceEquals(t,
		[]string{filepath.Join(src, "deploy", "publish.sh"), "0", "1", "0", "0", "1024"}, runner.calls[0])
}

func TestPublisherIbm(t *testing.T) {
	runner := &recordingRunner{}
	p := &CliPublisher{Runner: runner}
	f := &function.Function{Name: "hello", Platform: function.IBM, Source: deploySource(t, "hello")}

	utils.AssertNil(t, p.SetMemory(context.Background(), f, 128))
	utils.AssertSliceEquals(t, []string{"0", "0", "1", "0", "128"}, runner.calls[0][1:])
}

func TestPublisherDeployMismatch(t *testing.T) {
	runner := &recordingRunner{}
	p := &CliPublisher{Runner: runner}
	f := &function.Function{Name: "hello", Platform: function.Google, Source: deploySource(t, "other")}

	err := p.SetMemory(context.Background(), f, 128)
	utils.AssertErrorIs(t, err, ErrDeployMismatch)
	utils.AssertEquals(t, 0, len(runner.calls))
}

func TestPublisherUnsupported(t *testing.T) {
	runner := &recordingRunner{}
	p := &CliPublisher{Runner: runner}
	f := &function.Function{Name: "hello", Platform: function.Azure}

	err := p.SetMemory(context.Background(), f, 128)
	utils.AssertErrorIs(t, err, ErrMemoryUnsupported)
	utils.AssertEquals(t, 0, len(runner.calls))
}
