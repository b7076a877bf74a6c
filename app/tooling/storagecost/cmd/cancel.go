package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/storagecost/business/core/publish"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Stop waiting on the write in flight for a strategy",
	RunE:  cancelRun,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
	cancelCmd.Flags().StringVarP(&strategy, "strategy", "s", "event", "Storage strategy: event, self or child.")
}

func cancelRun(cmd *cobra.Command, args []string) error {
	s, err := publish.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	if err := call(http.MethodDelete, "/v1/publish/"+string(s), nil, nil); err != nil {
		return err
	}

	fmt.Printf("%s write cancelled, the transaction may still be mined\n", s)
	return nil
}
