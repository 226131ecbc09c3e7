// ABOUTME: Health command for flctl
// ABOUTME: Checks BFF connectivity and service status

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/client"
	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/styles"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	Long:  `Check connectivity to the FastLearners BFF and report its status.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	url := GetAPIURL()
	c := client.New(url)

	resp, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitBackend
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(url, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(url, resp))
	}

	return exitOK
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *client.HealthResponse) string {
	status := styles.StatusOK.Render(resp.Status)
	if resp.Status != "ok" {
		status = styles.StatusCritical.Render(resp.Status)
	}
	return styles.Rows(
		[2]string{"Backend", url},
		[2]string{"Status", status},
		[2]string{"Environment", resp.Environment},
		[2]string{"Upstream API", resp.UpstreamAPI},
		[2]string{"Tunnel", resp.Tunnel},
		[2]string{"Rate limits", strconv.FormatBool(resp.RateLimiting)},
		[2]string{"Cached", strconv.Itoa(resp.CacheStatus.Entries)},
	)
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *client.HealthResponse) string {
	output := map[string]any{
		"backend":      url,
		"status":       resp.Status,
		"environment":  resp.Environment,
		"upstream_api": resp.UpstreamAPI,
		"tunnel":       resp.Tunnel,
		"cache_status": resp.CacheStatus,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
