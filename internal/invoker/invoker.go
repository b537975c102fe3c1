package invoker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/record"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

// Invoker performs a single function call. It returns the raw response text
// and the round trip time in milliseconds.
type Invoker interface {
	Invoke(ctx context.Context, payload experiment.Payload) (string, float64, error)
}

// Factory builds the Invoker for a function target. Async asks for a call
// that does not wait for the function result, where the transport allows it.
type Factory func(target function.Target, async bool) (Invoker, error)

// Options tune the transports created by New.
type Options struct {
	Async         bool
	HTTPClient    *http.Client
	Runner        CommandRunner
	AwsCli        string
	GoogleCli     string
	IbmCli        string
	AwsCliVersion int
	GoogleOutput  string
}

// DefaultOptions reads the transport settings from the configuration.
func DefaultOptions() Options {
	return Options{
		HTTPClient: &http.Client{
			Timeout: config.GetSeconds(config.HTTP_TIMEOUT, 300),
		},
		Runner:        &ExecRunner{Timeout: config.GetSeconds(config.CLI_TIMEOUT, 450)},
		AwsCli:        config.GetString(config.AWS_CLI, "aws"),
		GoogleCli:     config.GetString(config.GOOGLE_CLI, "gcloud"),
		IbmCli:        config.GetString(config.IBM_CLI, "ibmcloud"),
		AwsCliVersion: config.GetInt(config.AWS_CLI_VERSION, 1),
		GoogleOutput:  config.GetString(config.GOOGLE_OUTPUT_ADAPTER, "legacy"),
	}
}

// New returns the Invoker serving the transport of target.
func New(target function.Target, opts Options) (Invoker, error) {
	if opts.Runner == nil {
		opts.Runner = &ExecRunner{Timeout: 450 * time.Second}
	}
	switch target.Kind {
	case function.HttpTransport:
		if target.Endpoint == "" {
			return nil, errors.New("no endpoint to reach the function over HTTP")
		}
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 300 * time.Second}
		}
		return &HTTPInvoker{Url: target.Endpoint, Client: client}, nil
	case function.AwsCliTransport:
		return &AwsCliInvoker{
			Function:   target.Endpoint,
			Command:    orDefault(opts.AwsCli, "aws"),
			Async:      opts.Async,
			CliVersion: opts.AwsCliVersion,
			Runner:     opts.Runner,
		}, nil
	case function.GoogleCliTransport:
		adapter, err := GoogleAdapter(opts.GoogleOutput)
		if err != nil {
			return nil, err
		}
		return &GoogleCliInvoker{
			Function: target.Endpoint,
			Command:  orDefault(opts.GoogleCli, "gcloud"),
			Extract:  adapter,
			Runner:   opts.Runner,
		}, nil
	case function.IbmCliTransport:
		return &IbmCliInvoker{
			Function: target.Endpoint,
			Command:  orDefault(opts.IbmCli, "ibmcloud"),
			Runner:   opts.Runner,
		}, nil
	}
	return nil, errors.Errorf("unsupported transport %v", target.Kind)
}

// NewFactory binds opts to New. Every invoker is instrumented.
func NewFactory(opts Options) Factory {
	return func(target function.Target, async bool) (Invoker, error) {
		o := opts
		o.Async = async
		inv, err := New(target, o)
		if err != nil {
			return nil, err
		}
		return Instrument(inv, target), nil
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func encodePayload(payload experiment.Payload) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "could not encode payload")
	}
	return string(data), nil
}

// measure calls f and returns its result with the elapsed milliseconds.
func measure(f func() (string, error)) (string, float64, error) {
	start := time.Now()
	out, err := f()
	return out, record.ElapsedMillis(time.Since(start).Seconds()), err
}
