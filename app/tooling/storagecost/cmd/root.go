// Package cmd contains the storagecost command line tool.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/storagecost/business/web/errs"
	"github.com/ardanlabs/storagecost/foundation/keystore"
	"github.com/spf13/cobra"
)

var (
	url         string
	accountName string
	accountPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the storagecost service.")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "deployer", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
}

var rootCmd = &cobra.Command{
	Use:          "storagecost",
	Short:        "Publish data on chain and compare what each storage strategy costs",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, keystore.Extension) {
		name += keystore.Extension
	}

	return filepath.Join(accountPath, name)
}

// =============================================================================

var client = http.Client{Timeout: 30 * time.Second}

// call sends the request to the service and decodes the response into out
// when out is not nil. Error responses are returned as errors.
func call(method string, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		for field, msg := range er.Fields {
			er.Error += fmt.Sprintf(" [%s: %s]", field, msg)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, er.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
