package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ardanlabs/storagecost/business/core/display"
	"github.com/ardanlabs/storagecost/business/core/publish"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type task struct {
	TaskID   string    `json:"task_id"`
	Strategy string    `json:"strategy"`
	Status   string    `json:"status"`
	Data     string    `json:"data"`
	Started  time.Time `json:"started"`
}

var (
	strategy string
	data     string
	wait     bool
	timeout  time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the input with a storage strategy",
	RunE:  publishRun,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVarP(&strategy, "strategy", "s", "event", "Storage strategy: event, self or child.")
	publishCmd.Flags().StringVarP(&data, "data", "d", "", "Text to publish. The current input is used when empty.")
	publishCmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the write to settle and print the result.")
	publishCmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "How long to wait for the write to settle.")
}

func publishRun(cmd *cobra.Command, args []string) error {
	s, err := publish.ParseStrategy(strategy)
	if err != nil {
		return err
	}

	// Subscribe before submitting so the pending state is not missed.
	var conn *websocket.Conn
	if wait {
		wsURL := "ws" + strings.TrimPrefix(url, "http") + "/v1/events"
		conn, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return fmt.Errorf("connecting to events: %w", err)
		}
		defer conn.Close()
	}

	// The data travels with the write so no other edit can slip in between.
	var in any
	if data != "" {
		in = struct {
			Data string `json:"data"`
		}{Data: data}
	}

	var t task
	if err := call(http.MethodPost, "/v1/publish/"+string(s), in, &t); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "task %s: %s write of %q %s\n", t.TaskID, t.Strategy, t.Data, t.Status)

	if conn == nil {
		return nil
	}

	view, err := follow(conn, s.Source().String())
	if err != nil {
		return err
	}

	return printResult(out, view, s.Source().String())
}

// follow reads rendered views until the source has been seen pending and is
// no longer pending.
func follow(conn *websocket.Conn, source string) (display.View, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))

	var seen bool
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return display.View{}, fmt.Errorf("waiting for the write: %w", err)
		}

		var view display.View
		if err := json.Unmarshal(msg, &view); err != nil {
			return display.View{}, fmt.Errorf("decoding view: %w", err)
		}

		pending := slices.Contains(view.Pending, source)
		switch {
		case pending:
			seen = true
		case seen:
			return view, nil
		}
	}
}

func printResult(w io.Writer, view display.View, source string) error {
	if e, exists := view.Errors[source]; exists {
		if e.Kind != display.ErrKindGas {
			return fmt.Errorf("%s: %s", e.Kind, e.Message)
		}
		fmt.Fprintf(w, "Gas metrics unavailable: %s\n", e.Message)
	}

	if view.Gas != nil {
		fmt.Fprintf(w, "Gas Price: %s GWEI\n", view.Gas.GasPrice)
		fmt.Fprintf(w, "Gas Units: %s\n", view.Gas.GasUsed)
		fmt.Fprintf(w, "Total Fee: %s ETH\n", view.Gas.TotalFee)
	}
	fmt.Fprintf(w, "Published data from onchain: %s\n", view.Display)

	return nil
}
