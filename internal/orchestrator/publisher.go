package orchestrator

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/invoker"
	"github.com/grussorusso/faasrunner/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var ErrMemoryUnsupported = errors.New("platform does not support changing memory")
var ErrDeployMismatch = errors.New("deployment configuration does not match the function")

// Publisher changes the memory of a deployed function.
type Publisher interface {
	SetMemory(ctx context.Context, f *function.Function, memory int) error
}

// CliPublisher reconfigures AWS functions in place and redeploys Google and
// IBM functions through the publish script found in their source.
type CliPublisher struct {
	Runner invoker.CommandRunner
	AwsCli string
}

func NewPublisher() *CliPublisher {
	return &CliPublisher{
		Runner: &invoker.ExecRunner{Timeout: config.GetSeconds(config.CLI_TIMEOUT, 450)},
		AwsCli: config.GetString(config.AWS_CLI, "aws"),
	}
}

func (p *CliPublisher) SetMemory(ctx context.Context, f *function.Function, memory int) error {
	switch f.Platform {
	case function.AWS:
		out, err := p.Runner.Run(ctx, p.AwsCli, "lambda", "update-function-configuration",
			"--function-name", f.Name, "--memory-size", strconv.Itoa(memory))
		if err != nil {
			return errors.Wrapf(err, "cannot update memory of %s", f.Name)
		}
		logrus.Debug(out)
		return nil
	case function.Google:
		return p.publish(ctx, f, []string{"0", "1", "0", "0"}, memory)
	case function.IBM:
		return p.publish(ctx, f, []string{"0", "0", "1", "0"}, memory)
	}
	return ErrMemoryUnsupported
}

// publish runs <source>/deploy/publish.sh, once checked that the deployment
// configuration refers to the same function.
func (p *CliPublisher) publish(ctx context.Context, f *function.Function, platformFlags []string, memory int) error {
	deployDir := filepath.Join(f.Source, "deploy")
	deployConfig, err := os.ReadFile(filepath.Join(deployDir, "config.json"))
	if err != nil {
		return errors.Wrap(err, "cannot read deployment configuration")
	}
	if name := utils.JsonExtractStringOrDefault(deployConfig, "functionName", ""); name != f.Name {
		return errors.Wrapf(ErrDeployMismatch, "%s deploys '%s'", deployDir, name)
	}

	args := append(append([]string(nil), platformFlags...), strconv.Itoa(memory))
	out, err := p.Runner.Run(ctx, filepath.Join(deployDir, "publish.sh"), args...)
	if err != nil {
		return errors.Wrapf(err, "cannot publish %s", f.Name)
	}
	logrus.Debug(out)
	return nil
}
