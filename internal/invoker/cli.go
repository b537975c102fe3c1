package invoker

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// AsyncPlaceholder is returned for calls whose response will be collected
// out of band.
const AsyncPlaceholder = `{"RESPONSE": "USE S3 PULL TO RETRIEVE RESPONSES", "version":42}`

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner executes commands on the local machine.
type ExecRunner struct {
	Timeout time.Duration
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), errors.Wrapf(err, "%s failed: %s", name, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		logrus.Debugf("%s stderr: %s", name, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func commandLine(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}

// AwsCliInvoker calls a Lambda function through the AWS CLI.
type AwsCliInvoker struct {
	Function   string
	Command    string
	Async      bool
	CliVersion int
	Runner     CommandRunner
}

func (a *AwsCliInvoker) Args(payload string) []string {
	invocationType := "RequestResponse"
	if a.Async {
		invocationType = "Event"
	}
	args := []string{"lambda", "invoke",
		"--invocation-type", invocationType,
		"--cli-read-timeout", "450",
		"--function-name", a.Function,
		"--payload", payload}
	if a.CliVersion >= 2 {
		args = append(args, "--cli-binary-format", "raw-in-base64-out")
	}
	return append(args, "/dev/stdout")
}

func (a *AwsCliInvoker) Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return "", 0, err
	}
	args := a.Args(body)
	return measure(func() (string, error) {
		out, err := a.Runner.Run(ctx, a.Command, args...)
		if err != nil {
			return "", errors.Wrap(err, commandLine(a.Command, args))
		}
		if a.Async {
			return AsyncPlaceholder, nil
		}
		return ExtractAws(out)
	})
}

// ExtractAws isolates the function response from the output of
// "aws lambda invoke ... /dev/stdout": the response is printed first, with
// no trailing newline, and is immediately followed by the opening brace of
// the CLI's own status document.
func ExtractAws(stdout string) (string, error) {
	first := stdout
	rest := ""
	if i := strings.IndexByte(stdout, '\n'); i >= 0 {
		first, rest = stdout[:i], stdout[i:]
	}
	if len(first) == 0 {
		return "", errors.New("empty output from aws cli")
	}
	status := "{" + rest
	if fnErr := utils.JsonExtractStringOrDefault([]byte(status), "FunctionError", ""); fnErr != "" {
		return "", errors.Errorf("function error: %s", fnErr)
	}
	return first[:len(first)-1], nil
}

// GoogleCliInvoker calls a Cloud Function through gcloud.
type GoogleCliInvoker struct {
	Function string
	Command  string
	Extract  Adapter
	Runner   CommandRunner
}

func (g *GoogleCliInvoker) Args(payload string) []string {
	return []string{"functions", "call", g.Function, "--data", payload}
}

func (g *GoogleCliInvoker) Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return "", 0, err
	}
	args := g.Args(body)
	return measure(func() (string, error) {
		out, err := g.Runner.Run(ctx, g.Command, args...)
		if err != nil {
			return "", errors.Wrap(err, commandLine(g.Command, args))
		}
		return g.Extract(out)
	})
}

// IbmCliInvoker calls an OpenWhisk action through the IBM Cloud CLI. Every
// payload attribute becomes a parameter.
type IbmCliInvoker struct {
	Function string
	Command  string
	Runner   CommandRunner
}

func (i *IbmCliInvoker) Args(payload experiment.Payload) ([]string, error) {
	args := []string{"fn", "action", "invoke", "--result", i.Function}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := parameterValue(payload[k])
		if err != nil {
			return nil, err
		}
		args = append(args, "-p", k, v)
	}
	return args, nil
}

func parameterValue(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "could not encode parameter")
	}
	return string(data), nil
}

func (i *IbmCliInvoker) Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error) {
	args, err := i.Args(payload)
	if err != nil {
		return "", 0, err
	}
	return measure(func() (string, error) {
		out, err := i.Runner.Run(ctx, i.Command, args...)
		if err != nil {
			return "", errors.Wrap(err, commandLine(i.Command, args))
		}
		return out, nil
	})
}
