package function

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Platform identifies where a function is deployed.
type Platform string

const (
	HTTP   Platform = "HTTP"
	AWS    Platform = "AWS Lambda"
	Google Platform = "Google"
	IBM    Platform = "IBM"
	Azure  Platform = "Azure"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case HTTP, AWS, Google, IBM, Azure:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform '%s'", s)
}

// TransportKind selects the Invoker implementation.
type TransportKind int

const (
	HttpTransport TransportKind = iota
	AwsCliTransport
	GoogleCliTransport
	IbmCliTransport
)

func (k TransportKind) String() string {
	switch k {
	case AwsCliTransport:
		return "aws-cli"
	case GoogleCliTransport:
		return "gcloud-cli"
	case IbmCliTransport:
		return "ibmcloud-cli"
	default:
		return "http"
	}
}

// Target is what an invoker needs to reach a function: a transport and
// either a URL (HTTP) or the deployed function name (CLIs).
type Target struct {
	Kind     TransportKind
	Endpoint string
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.Endpoint)
}

// A deployed serverless Function.
type Function struct {
	Name       string   `json:"function"`
	Platform   Platform `json:"platform"`
	Source     string   `json:"source"`   // used only to redeploy
	Endpoint   string   `json:"endpoint"` // required over HTTP
	SourceFile string   `json:"sourceFile,omitempty"`
}

// Default is used for every attribute missing from a function file.
func Default() *Function {
	return &Function{
		Name:     "HELLOWORLD",
		Platform: AWS,
		Source:   "../java_template",
		Endpoint: "",
	}
}

func (f *Function) String() string {
	return f.Name
}

// Target resolves how to call the function. CLIs address the function by
// name; HTTP and Azure functions can only be called over HTTP.
func (f *Function) Target(useCLI bool) Target {
	if !useCLI {
		return Target{Kind: HttpTransport, Endpoint: f.Endpoint}
	}
	switch f.Platform {
	case AWS:
		return Target{Kind: AwsCliTransport, Endpoint: f.Name}
	case Google:
		return Target{Kind: GoogleCliTransport, Endpoint: f.Name}
	case IBM:
		return Target{Kind: IbmCliTransport, Endpoint: f.Name}
	default:
		return Target{Kind: HttpTransport, Endpoint: f.Endpoint}
	}
}

// Load reads a function file. Missing attributes are replaced by defaults
// and reported with a warning.
func Load(path string) (*Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read function file %s", path)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid function file %s", path)
	}
	f.SourceFile = path
	return f, nil
}

// Decode parses a function descriptor and fills in defaults.
func Decode(data []byte) (*Function, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	return FromAttributes(attrs)
}

// FromAttributes builds a descriptor from raw attributes, defaulting the missing ones.
func FromAttributes(attrs map[string]json.RawMessage) (*Function, error) {
	def := Default()
	defaults := map[string]interface{}{
		"function": def.Name,
		"platform": string(def.Platform),
		"source":   def.Source,
		"endpoint": def.Endpoint,
	}
	merged := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		merged[k] = v
	}
	for _, key := range []string{"function", "platform", "source", "endpoint"} {
		if _, ok := attrs[key]; !ok {
			logrus.Warnf("%s missing in function file! Using default option of '%v'", key, defaults[key])
			merged[key] = defaults[key]
		}
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	f := &Function{}
	if err := json.Unmarshal(encoded, f); err != nil {
		return nil, err
	}
	if _, err := ParsePlatform(string(f.Platform)); err != nil {
		return nil, err
	}
	return f, nil
}

// Attributes is the raw form of the descriptor, used to apply overrides.
func (f *Function) Attributes() (map[string]json.RawMessage, error) {
	encoded, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var attrs map[string]json.RawMessage
	err = json.Unmarshal(encoded, &attrs)
	return attrs, err
}

// ApplyOverrides patches the descriptor with command line overrides.
// Function attributes are always strings.
func (f *Function) ApplyOverrides(overrides map[string]string) error {
	if len(overrides) == 0 {
		return nil
	}
	attrs, err := f.Attributes()
	if err != nil {
		return err
	}
	for k, v := range overrides {
		encoded, _ := json.Marshal(v)
		attrs[k] = encoded
	}
	patched, err := FromAttributes(attrs)
	if err != nil {
		return errors.Wrap(err, "invalid function override")
	}
	*f = *patched
	return nil
}
