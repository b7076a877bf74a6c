package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:       "read self|child",
	Short:     "Read the data last stored in the contract or its child",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"self", "child"},
	RunE:      readRun,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func readRun(cmd *cobra.Command, args []string) error {
	var out struct {
		Source string `json:"source"`
		Data   string `json:"data"`
	}
	if err := call(http.MethodGet, "/v1/read/"+args[0], nil, &out); err != nil {
		return err
	}

	fmt.Println(out.Data)
	return nil
}
