package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

type input struct {
	Data  string `json:"data"`
	Bytes int    `json:"bytes,omitempty"`
}

var inputCmd = &cobra.Command{
	Use:   "input [text]",
	Short: "Set the text to publish and print its size in bytes",
	RunE:  inputRun,
}

func init() {
	rootCmd.AddCommand(inputCmd)
}

func inputRun(cmd *cobra.Command, args []string) error {
	bytes, err := setInput(strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Printf("%d bytes of data\n", bytes)
	return nil
}

func setInput(text string) (int, error) {
	var out input
	if err := call(http.MethodPut, "/v1/input", input{Data: text}, &out); err != nil {
		return 0, err
	}
	return out.Bytes, nil
}
