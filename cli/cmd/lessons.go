// ABOUTME: Lesson commands for staff accounts
// ABOUTME: Fetches one lesson or a filtered list through the BFF

package cmd

import (
	"bytes"
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
)

var lessonFilter client.LessonFilter

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Browse lessons (superadmin, admin or teacher)",
}

var lessonsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one lesson",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if exitCode := runLessonGet(ctx, os.Stdout, args[0]); exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var lessonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lessons for a class, subject, term and week",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if exitCode := runLessonList(ctx, os.Stdout, lessonFilter); exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	lessonsListCmd.Flags().StringVar(&lessonFilter.Class, "class", "", "Class id")
	lessonsListCmd.Flags().StringVar(&lessonFilter.Subject, "subject", "", "Subject id")
	lessonsListCmd.Flags().StringVar(&lessonFilter.Term, "term", "", "Term id")
	lessonsListCmd.Flags().StringVar(&lessonFilter.Week, "week", "", "Week id")
	lessonsCmd.AddCommand(lessonsGetCmd, lessonsListCmd)
	rootCmd.AddCommand(lessonsCmd)
}

func runLessonGet(ctx context.Context, w io.Writer, rawID string) int {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		fmt.Fprintf(w, "Error: invalid lesson id %q\n", rawID)
		return exitUsage
	}

	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	content, err := c.Lesson(ctx, id)
	saveSession(w, c)
	if err != nil {
		printError(w, err)
		return exitCodeFor(err)
	}
	printContent(w, content)
	return exitOK
}

func runLessonList(ctx context.Context, w io.Writer, filter client.LessonFilter) int {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"class", filter.Class}, {"subject", filter.Subject}, {"term", filter.Term}, {"week", filter.Week},
	} {
		if f.value == "" {
			missing = append(missing, "--"+f.name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "Error: missing required flags: %v\n", missing)
		return exitUsage
	}

	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	content, err := c.ListLessons(ctx, filter)
	saveSession(w, c)
	if err != nil {
		printError(w, err)
		return exitCodeFor(err)
	}
	printContent(w, content)
	return exitOK
}

// printContent pretty-prints a JSON content block.
func printContent(w io.Writer, content json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, content, "", "  "); err != nil {
		fmt.Fprintln(w, string(content))
		return
	}
	fmt.Fprintln(w, buf.String())
}
