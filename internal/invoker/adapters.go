package invoker

import (
	"strings"

	"github.com/pkg/errors"
)

// Adapter isolates the JSON response from the output of a CLI.
type Adapter func(stdout string) (string, error)

var googleAdapters = map[string]Adapter{
	// Older gcloud releases print a fixed 34 byte preamble and a trailing
	// quote around the result.
	"legacy": func(stdout string) (string, error) {
		s := strings.ReplaceAll(stdout, "\n", "")
		if len(s) < 35 {
			return "", errors.Errorf("unexpected gcloud output %q", s)
		}
		return s[34 : len(s)-1], nil
	},
	"json": func(stdout string) (string, error) {
		start := strings.IndexByte(stdout, '{')
		end := strings.LastIndexByte(stdout, '}')
		if start < 0 || end < start {
			return "", errors.Errorf("no JSON object in gcloud output %q", stdout)
		}
		return stdout[start : end+1], nil
	},
}

// GoogleAdapter returns the gcloud output adapter with the given name.
func GoogleAdapter(name string) (Adapter, error) {
	if name == "" {
		name = "legacy"
	}
	a, ok := googleAdapters[name]
	if !ok {
		return nil, errors.Errorf("unknown gcloud output adapter '%s'", name)
	}
	return a, nil
}
