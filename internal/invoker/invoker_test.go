package invoker

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/utils"
	"golang.org/x/net/context"
)

type fakeRunner struct {
	stdout string
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	f.name = name
	f.args = args
	return f.stdout, f.err
}

func TestHTTPInvoker(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = string(body)
		w.Write([]byte(`{"version":1,"runtime":3}`))
	}))
	defer srv.Close()

	inv, err := New(function.Target{Kind: function.HttpTransport, Endpoint: srv.URL}, Options{})
	utils.AssertNil(t, err)
	out, elapsed, err := inv.Invoke(context.Background(), experiment.Payload{"x": 1})
	utils.AssertNil(t, err)
	utils.AssertEquals(t, `{"version":1,"runtime":3}`, out)
	utils.AssertEquals(t, `{"x":1}`, received)
	utils.AssertTrue(t, elapsed >= 0)
}

func TestHTTPInvokerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	inv := &HTTPInvoker{Url: srv.URL, Client: srv.Client()}
	_, _, err := inv.Invoke(context.Background(), nil)
	utils.AssertNonNil(t, err)
}

func TestHTTPRequiresEndpoint(t *testing.T) {
	_, err := New(function.Target{Kind: function.HttpTransport}, Options{})
	utils.AssertNonNil(t, err)
}

func TestAwsCliInvoker(t *testing.T) {
	runner := &fakeRunner{stdout: "{\"version\":1}{\n    \"StatusCode\": 200,\n    \"ExecutedVersion\": \"$LATEST\"\n}\n"}
	inv, err := New(function.Target{Kind: function.AwsCliTransport, Endpoint: "hello"}, Options{Runner: runner})
	utils.AssertNil(t, err)

	out, _, err := inv.Invoke(context.Background(), experiment.Payload{"name": "bob"})
	utils.AssertNil(t, err)
	utils.AssertEquals(t, `{"version":1}`, out)
	utils.AssertEquals(t, "aws", runner.name)
	utils.AssertSliceEquals(t, []string{"lambda", "invoke", "--invocation-type", "RequestResponse",
		"--cli-read-timeout", "450", "--function-name", "hello", "--payload", `{"name":"bob"}`, "/dev/stdout"}, runner.args)
}

func TestAwsCliVersion2(t *testing.T) {
	a := &AwsCliInvoker{Function: "f", CliVersion: 2}
	args := a.Args("{}")
	utils.AssertEquals(t, "/dev/stdout", args[len(args)-1])
	utils.AssertEquals(t, "raw-in-base64-out", args[len(args)-2])
}

func TestAwsCliFunctionError(t *testing.T) {
	_, err := ExtractAws("{\"errorMessage\":\"boom\"}{\n  \"StatusCode\": 200,\n  \"FunctionError\": \"Unhandled\"\n}\n")
	utils.AssertNonNil(t, err)
}

func TestAwsAsync(t *testing.T) {
	runner := &fakeRunner{stdout: "{\n  \"StatusCode\": 202\n}\n"}
	inv := &AwsCliInvoker{Function: "f", Command: "aws", Async: true, Runner: runner}
	out, _, err := inv.Invoke(context.Background(), nil)
	utils.AssertNil(t, err)
	utils.AssertEquals(t, AsyncPlaceholder, out)
	utils.AssertEquals(t, "Event", runner.args[3])
}

func TestCliFailure(t *testing.T) {
	exitErr := fmt.Errorf("exit status 255")
	runner := &fakeRunner{err: exitErr}
	inv := &AwsCliInvoker{Function: "f", Command: "aws", Runner: runner}
	_, _, err := inv.Invoke(context.Background(), nil)
	utils.AssertNonNil(t, err)
	utils.AssertTrue(t, strings.Contains(err.Error(), "--function-name f"))
	utils.AssertErrorIs(t, err, exitErr)

	google := &GoogleCliInvoker{Function: "g", Command: "gcloud", Extract: googleAdapters["json"], Runner: runner}
	_, _, err = google.Invoke(context.Background(), nil)
	utils.AssertErrorIs(t, err, exitErr)

	ibm := &IbmCliInvoker{Function: "i", Command: "ibmcloud", Runner: runner}
	_, _, err = ibm.Invoke(context.Background(), experiment.Payload{"n": 1})
	utils.AssertErrorIs(t, err, exitErr)
}

func TestGoogleAdapters(t *testing.T) {
	legacy, err := GoogleAdapter("")
	utils.AssertNil(t, err)
	out, err := legacy("executionId: j2dqa0x6z4mk\nresult: '{\"version\":1}'\n")
	utils.AssertNil(t, err)
	utils.AssertEquals(t, `{"version":1}`, out)

	_, err = legacy("short")
	utils.AssertNonNil(t, err)

	js, err := GoogleAdapter("json")
	utils.AssertNil(t, err)
	out, err = js("executionId: x\nresult: '{\"a\":{\"b\":2}}'\n")
	utils.AssertNil(t, err)
	utils.AssertEquals(t, `{"a":{"b":2}}`, out)

	_, err = GoogleAdapter("yaml")
	utils.AssertNonNil(t, err)
}

func TestGoogleCliInvoker(t *testing.T) {
	runner := &fakeRunner{stdout: "{\"version\":3}"}
	inv, err := New(function.Target{Kind: function.GoogleCliTransport, Endpoint: "g"},
		Options{Runner: runner, GoogleOutput: "json"})
	utils.AssertNil(t, err)
	out, _, err := inv.Invoke(context.Background(), experiment.Payload{})
	utils.AssertNil(t, err)
	utils.AssertEquals(t, `{"version":3}`, out)
	utils.AssertSliceEquals(t, []string{"functions", "call", "g", "--data", "{}"}, runner.args)
}

func TestIbmCliInvoker(t *testing.T) {
	runner := &fakeRunner{stdout: "{\"version\":2}\n"}
	inv, err := New(function.Target{Kind: function.IbmCliTransport, Endpoint: "act"}, Options{Runner: runner})
	utils.AssertNil(t, err)
	out, _, err := inv.Invoke(context.Background(), experiment.Payload{"n": 3, "a": "x"})
	utils.AssertNil(t, err)
	utils.AssertEquals(t, "{\"version\":2}\n", out)
	utils.AssertEquals(t, "ibmcloud", runner.name)
	utils.AssertSliceEquals(t, []string{"fn", "action", "invoke", "--result", "act", "-p", "a", "x", "-p", "n", "3"}, runner.args)
}

func TestFactoryInstruments(t *testing.T) {
	runner := &fakeRunner{stdout: "{\"version\":2}"}
	factory := NewFactory(Options{Runner: runner})
	inv, err := factory(function.Target{Kind: function.IbmCliTransport, Endpoint: "act"}, false)
	utils.AssertNil(t, err)
	_, ok := inv.(*instrumented)
	utils.AssertTrue(t, ok)
	out, _, err := inv.Invoke(context.Background(), nil)
	utils.AssertNil(t, err)
	utils.AssertEquals(t, `{"version":2}`, out)
}
