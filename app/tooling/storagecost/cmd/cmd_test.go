package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestFee(t *testing.T) {
	t.Log("Given the need to format gas metrics from the command line.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen 21000 gas is used at 1.5 gwei.", testID)
		{
			out, err := execute("fee", "-g", "21000", "-w", "1500000000")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould run the command: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould run the command.", success, testID)

			for _, line := range []string{"Gas Price: 1.5000 GWEI", "Gas Units: 21000", "Total Fee: 0.000032 ETH"} {
				if !strings.Contains(out, line) {
					t.Fatalf("\t%s\tTest %d:\tShould print %q, got:\n%s", failed, testID, line, out)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould print the formatted metrics.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the gas price is not an integer.", testID)
		{
			if _, err := execute("fee", "-w", "1.5gwei"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the gas price.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the gas price.", success, testID)
		}
	}
}

func TestPublish(t *testing.T) {
	t.Log("Given the need to publish text from the command line.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen text is given with the publish command.", testID)
		{
			var path string
			var body struct {
				Data string `json:"data"`
			}

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.Method + " " + r.URL.Path
				json.NewDecoder(r.Body).Decode(&body)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusAccepted)
				json.NewEncoder(w).Encode(task{
					TaskID:   "7",
					Strategy: "self",
					Status:   "pending",
					Data:     body.Data,
					Started:  time.Now(),
				})
			}))
			defer srv.Close()

			out, err := execute("publish", "--url", srv.URL, "-s", "self", "-d", "hello")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould run the command: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould run the command.", success, testID)

			if path != "POST /v1/publish/self" || body.Data != "hello" {
				t.Fatalf("\t%s\tTest %d:\tShould send the text with the write, got %s %+v.", failed, testID, path, body)
			}
			t.Logf("\t%s\tTest %d:\tShould send the text with the write.", success, testID)

			if !strings.Contains(out, `task 7: self write of "hello" pending`) {
				t.Fatalf("\t%s\tTest %d:\tShould print the started task, got:\n%s", failed, testID, out)
			}
			t.Logf("\t%s\tTest %d:\tShould print the started task.", success, testID)
		}
	}
}
