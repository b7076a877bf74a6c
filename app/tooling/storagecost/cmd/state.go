package cmd

import (
	"net/http"

	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the rendered display state",
	RunE:  stateRun,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func stateRun(cmd *cobra.Command, args []string) error {
	var view display.View
	if err := call(http.MethodGet, "/v1/state", nil, &view); err != nil {
		return err
	}

	return printJSON(view)
}
