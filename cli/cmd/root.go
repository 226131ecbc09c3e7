// ABOUTME: Root command for the flctl CLI
// ABOUTME: Handles global flags, the persisted session, and exit-code mapping

package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/client"
)

var (
	apiURL      string
	jsonOutput  bool
	sessionFile string
)

const defaultAPIURL = "http://localhost:8080"

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitBackend = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "flctl",
	Short: "CLI for the FastLearners BFF",
	Long: `flctl talks to the FastLearners BFF the way the web app does: it signs in,
keeps the session cookies between runs, and manages lessons and uploads.

Environment Variables:
  FASTLEARNERS_API_URL  BFF URL (default: http://localhost:8080)

Exit codes: 0 ok, 1 usage or validation error, 2 backend or network error.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "BFF URL (overrides FASTLEARNERS_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "", "Session cookie file (default $XDG_CONFIG_HOME/fastlearners/session.json)")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("FASTLEARNERS_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// newClient returns a client whose cookies persist in the session file.
func newClient() (*client.Client, error) {
	path := sessionFile
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}
	url := GetAPIURL()
	jar, err := client.LoadSessionJar(path, url)
	if err != nil {
		return nil, err
	}
	return client.New(url, client.WithSessionJar(jar)), nil
}

// saveSession persists cookies, reporting a failure without changing the exit code.
func saveSession(w io.Writer, c *client.Client) {
	if err := c.Save(); err != nil {
		fmt.Fprintf(w, "Warning: could not save session: %v\n", err)
	}
}

// exitCodeFor maps a command error to an exit code. Backend validation
// failures count as usage errors.
func exitCodeFor(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return exitUsage
		}
	}
	return exitBackend
}

// printError writes err, including any field errors the backend returned.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		for field, msgs := range apiErr.Fields {
			for _, msg := range msgs {
				fmt.Fprintf(w, "  %s: %s\n", field, msg)
			}
		}
	}
}
