package cli

import (
	"fmt"
	"os"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/logging"
	"github.com/spf13/cobra"
)

var configFile string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "faasrunner",
	Short: "Runs experiments against serverless functions",
	Long: `Runs load experiments against FaaS functions (AWS Lambda, Google Cloud
Functions, IBM Cloud Functions, Azure, plain HTTP) and compiles CSV reports.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.ReadConfiguration(configFile)
		if verbose {
			config.Set(config.LOG_LEVEL, "debug")
		}
		logging.Init()
	},
	SilenceUsage: true,
}

func Init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(invokeCmd)
	invokeCmd.Flags().StringVarP(&invokeFunction, "function", "f", "", "function file")
	invokeCmd.Flags().StringSliceVarP(&invokeParams, "param", "p", nil, "Payload attribute: <name>:<value>")
	invokeCmd.Flags().BoolVarP(&invokeWithCLI, "cli", "", false, "call through the platform CLI")
	invokeCmd.Flags().BoolVarP(&invokeAsync, "async", "", false, "asynchronous call")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
