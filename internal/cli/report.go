package cli

import (
	"fmt"
	"path/filepath"

	"github.com/grussorusso/faasrunner/internal/experiment"
	"github.com/grussorusso/faasrunner/internal/report"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <folder> <experiment.json>",
	Short: "Compiles a report from a folder of JSON runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := experiment.Load(args[1])
		if err != nil {
			return err
		}
		rep, runs, err := report.FromFolder(args[0], exp)
		if err != nil {
			return err
		}
		base := filepath.Join(args[0], fmt.Sprintf("compiled-results-%s", exp.Name))
		if err := report.WriteFile(base, rep, runs, false); err != nil {
			return err
		}
		logrus.Infof("Compiled %d runs into %s.csv", len(runs), base)
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <report.csv>",
	Short: "Splits a report into one CSV file per table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := report.Split(args[0])
		if err != nil {
			return err
		}
		logrus.Infof("Tables written to %s", dir)
		return nil
	},
}
