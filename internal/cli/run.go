package cli

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/grussorusso/faasrunner/internal/api"
	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/executor"
	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/function"
	"github.com/grussorusso/faasrunner/internal/invoker"
	"github.com/grussorusso/faasrunner/internal/metrics"
	"github.com/grussorusso/faasrunner/internal/orchestrator"
	"github.com/grussorusso/faasrunner/internal/store"
	"github.com/grussorusso/faasrunner/internal/telemetry"
	"github.com/grussorusso/faasrunner/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

const DefaultOutDir = "./history"

var runCmd = &cobra.Command{
	Use:   "run -f <function.json>... -e <experiment.json>... [-o <dir>] [--key[i]=value]...",
	Short: "Runs experiments",
	Long: `Runs the experiments against the functions. With as many functions as
experiments (at least two), the functions form a pipeline.
Any --key=value overrides an attribute of every function and experiment;
--key[i]=value only the i-th ones.`,
	DisableFlagParsing: true,
	RunE:               run,
}

// RunArgs are the arguments of the run command.
type RunArgs struct {
	Functions   []string
	Experiments []string
	OutDir      string
	Overrides   map[string]string
}

// ParseRunArgs reads -f, -e and -o lists and --key overrides. An override
// value is either joined with "=" or given by the following arguments.
func ParseRunArgs(args []string) (*RunArgs, error) {
	ra := &RunArgs{OutDir: DefaultOutDir, Overrides: map[string]string{}}
	mode := ""
	override := ""
	for _, arg := range args {
		switch {
		case arg == "-f" || arg == "-e" || arg == "-o":
			mode = arg
		case len(arg) > 2 && arg[:2] == "--":
			mode = "--"
			override = arg[2:]
			value := ""
			if i := indexOutsideBrackets(override, '='); i >= 0 {
				override, value = override[:i], override[i+1:]
			}
			if _, _, err := splitOverride(override); err != nil {
				return nil, err
			}
			ra.Overrides[override] = value
		default:
			switch mode {
			case "-f":
				ra.Functions = append(ra.Functions, arg)
			case "-e":
				ra.Experiments = append(ra.Experiments, arg)
			case "-o":
				ra.OutDir = arg
			case "--":
				ra.Overrides[override] += arg
			default:
				return nil, fmt.Errorf("unexpected argument '%s'", arg)
			}
		}
	}
	return ra, nil
}

// globalFlags takes --config and --verbose out of args, since the run
// command parses its own arguments.
func globalFlags(args []string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	found := false
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "-v" || arg == "--verbose":
			verbose, found = true, true
		case (arg == "-c" || arg == "--config") && i+1 < len(args):
			configFile, found = args[i+1], true
			i++
		case len(arg) > 9 && arg[:9] == "--config=":
			configFile, found = arg[9:], true
		default:
			rest = append(rest, arg)
		}
	}
	return rest, found
}

func indexOutsideBrackets(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

var indexedKey = regexp.MustCompile(`^([^\[\]]+)\[(\d+)\]$`)
var brackets = regexp.MustCompile(`[\[\]]`)

// splitOverride separates "key[i]" into key and i; plain keys have index -1.
func splitOverride(override string) (string, int, error) {
	if m := indexedKey.FindStringSubmatch(override); m != nil {
		index, err := strconv.Atoi(m[2])
		return m[1], index, err
	}
	if override == "" || brackets.MatchString(override) {
		return "", 0, fmt.Errorf("invalid override '--%s'", override)
	}
	return override, -1, nil
}

// overridesFor returns the overrides that apply to the index-th input.
func overridesFor(overrides map[string]string, index int) map[string]string {
	selected := make(map[string]string)
	for k, v := range overrides {
		if key, i, err := splitOverride(k); err == nil && (i < 0 || i == index) {
			if _, set := selected[key]; set && i < 0 {
				// an indexed override wins over the plain one
				continue
			}
			selected[key] = v
		}
	}
	return selected
}

// defaultCount is how many default inputs are needed when none is given:
// one, or as many as the highest override index requires.
func defaultCount(overrides map[string]string) int {
	count := 1
	for k := range overrides {
		if _, i, err := splitOverride(k); err == nil && i+1 > count {
			count = i + 1
		}
	}
	return count
}

// Load reads the inputs and applies the overrides.
func (ra *RunArgs) Load() ([]*function.Function, []*experiment.Experiment, error) {
	var functions []*function.Function
	for _, path := range ra.Functions {
		f, err := function.Load(path)
		if err != nil {
			return nil, nil, err
		}
		functions = append(functions, f)
	}
	if len(functions) == 0 {
		for i := 0; i < defaultCount(ra.Overrides); i++ {
			functions = append(functions, function.Default())
		}
	}

	var experiments []*experiment.Experiment
	for _, path := range ra.Experiments {
		e, err := experiment.Load(path)
		if err != nil {
			return nil, nil, err
		}
		experiments = append(experiments, e)
	}
	if len(experiments) == 0 {
		for i := 0; i < defaultCount(ra.Overrides); i++ {
			experiments = append(experiments, experiment.Default())
		}
	}

	for i, f := range functions {
		if err := f.ApplyOverrides(onlyKnown(overridesFor(ra.Overrides, i), functionKeys)); err != nil {
			return nil, nil, err
		}
		logrus.Infof("Loaded function: %+v", *f)
	}
	for i, e := range experiments {
		if err := e.ApplyOverrides(overridesFor(ra.Overrides, i)); err != nil {
			return nil, nil, err
		}
		logrus.Infof("Loaded experiment: %s", e.Name)
	}
	return functions, experiments, nil
}

var functionKeys = []string{"function", "platform", "source", "endpoint"}

func onlyKnown(overrides map[string]string, keys []string) map[string]string {
	known := make(map[string]string)
	for _, k := range keys {
		if v, ok := overrides[k]; ok {
			known[k] = v
		}
	}
	return known
}

func run(cmd *cobra.Command, args []string) error {
	args, reload := globalFlags(args)
	if len(args) == 0 {
		return cmd.Help()
	}
	if reload {
		rootCmd.PersistentPreRun(cmd, args)
	}
	ra, err := ParseRunArgs(args)
	if err != nil {
		return err
	}
	logrus.Infof("Overrides: %v", ra.Overrides)
	functions, experiments, err := ra.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ra.OutDir, 0755); err != nil {
		return errors.Wrap(err, "cannot create output directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupOTelSDK(ctx)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logrus.Warnf("Tracing shutdown: %v", err)
		}
	}()
	go metrics.Init()

	ex := executor.New(invoker.NewFactory(invoker.DefaultOptions()))
	if config.GetBool(config.API_ENABLED, false) {
		e := api.NewServer(ex.Progress)
		go api.StartAPIServer(e)
		defer e.Close()
	}
	st := store.FromConfig()
	defer utils.CloseEtcdClient()

	o := orchestrator.New(ex, orchestrator.NewPublisher(), st)
	return o.Run(ctx, functions, experiments, ra.OutDir)
}
