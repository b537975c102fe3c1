package cli

import (
	"fmt"
	"strings"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/invoker"
	"github.com/grussorusso/faasrunner/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var invokeFunction string
var invokeParams []string
var invokeWithCLI, invokeAsync bool

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Invokes a function once",
	RunE:  invoke,
}

// parsePayload builds a payload from <name>:<value> parameters.
func parsePayload(params []string) (experiment.Payload, error) {
	payload := experiment.Payload{}
	for _, p := range params {
		name, value, found := strings.Cut(p, ":")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid parameter '%s': expected <name>:<value>", p)
		}
		payload[name] = value
	}
	return payload, nil
}

func invoke(cmd *cobra.Command, args []string) error {
	if invokeFunction == "" {
		return cmd.Help()
	}
	f, err := function.Load(invokeFunction)
	if err != nil {
		return err
	}
	payload, err := parsePayload(invokeParams)
	if err != nil {
		return err
	}

	opts := invoker.DefaultOptions()
	opts.Async = invokeAsync
	inv, err := invoker.New(f.Target(invokeWithCLI), opts)
	if err != nil {
		return err
	}
	out, elapsed, err := inv.Invoke(context.Background(), payload)
	if err != nil {
		return err
	}
	logrus.Infof("%s answered in %.1f ms", f.Name, elapsed)
	utils.PrintJsonResponse([]byte(out))
	return nil
}
