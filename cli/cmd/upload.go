// ABOUTME: Upload command for lesson CSV files
// ABOUTME: Validates files locally with the BFF's rules before sending them

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/client"
	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/styles"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// uploadAllFlags holds one path per file role for `upload all`.
var uploadAllFlags = map[models.FileRole]*string{}

var uploadCmd = &cobra.Command{
	Use:   "upload <kind> <file>",
	Short: "Upload a lesson CSV file",
	Long: fmt.Sprintf(`Upload one lesson file. kind is one of: %s.

Files must be CSV or TXT and smaller than 10MB; they are checked before anything is sent.`,
		strings.Join(uploadKinds(), ", ")),
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		role, ok := models.UploadKind[args[0]]
		if !ok {
			fmt.Fprintf(os.Stdout, "Error: unknown upload kind %q (want one of %s)\n", args[0], strings.Join(uploadKinds(), ", "))
			os.Exit(exitUsage)
		}
		exitCode := runUpload(ctx, os.Stdout, args[0], map[models.FileRole]string{role: args[1]})
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var uploadAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Upload all six lesson files together",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		files := make(map[models.FileRole]string, len(uploadAllFlags))
		for role, path := range uploadAllFlags {
			files[role] = *path
		}
		if exitCode := runUpload(ctx, os.Stdout, models.UploadKindAll, files); exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	for kind, role := range models.UploadKind {
		uploadAllFlags[role] = uploadAllCmd.Flags().String(kind, "", fmt.Sprintf("Path to the %s", role.Label()))
	}
	uploadCmd.AddCommand(uploadAllCmd)
	rootCmd.AddCommand(uploadCmd)
}

func uploadKinds() []string {
	kinds := make([]string, 0, len(models.UploadKind))
	for kind := range models.UploadKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// validateUploadFiles applies the BFF's per-file rules to local paths.
// The result maps field names to messages, like the BFF's 422 reply.
func validateUploadFiles(kind string, files map[models.FileRole]string) map[string][]string {
	roles := models.AllFileRoles
	if kind != models.UploadKindAll {
		roles = []models.FileRole{models.UploadKind[kind]}
	}

	problems := map[string][]string{}
	for _, role := range roles {
		path := files[role]
		if path == "" {
			problems[string(role)] = []string{role.RequiredMessage()}
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			problems[string(role)] = []string{fmt.Sprintf("Cannot read %s: %v", path, err)}
			continue
		}
		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if msgs := models.ValidateUploadFile(filepath.Base(path), contentType, info.Size()); len(msgs) > 0 {
			problems[string(role)] = msgs
		}
	}
	return problems
}

func runUpload(ctx context.Context, w io.Writer, kind string, files map[models.FileRole]string) int {
	if problems := validateUploadFiles(kind, files); len(problems) > 0 {
		fmt.Fprintln(w, "Error: validation failed")
		fields := make([]string, 0, len(problems))
		for field := range problems {
			fields = append(fields, field)
		}
		slices.Sort(fields)
		for _, field := range fields {
			for _, msg := range problems[field] {
				fmt.Fprintf(w, "  %s: %s\n", field, msg)
			}
		}
		return exitUsage
	}

	selected := make(map[models.FileRole]string, len(files))
	for role, path := range files {
		if path != "" {
			selected[role] = path
		}
	}

	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	result, err := c.Upload(ctx, kind, selected)
	saveSession(w, c)
	if err != nil {
		printError(w, err)
		return exitCodeFor(err)
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(w, string(data))
		return exitOK
	}
	fmt.Fprintln(w, formatUploadHuman(kind, result))
	return exitOK
}

func formatUploadHuman(kind string, result *client.UploadResult) string {
	conflicts := styles.StatusOK.Render("none")
	if n := len(result.Conflicts); n > 0 {
		conflicts = styles.StatusWarning.Render(fmt.Sprintf("%d", n))
	}
	return styles.Rows(
		[2]string{"Upload", kind},
		[2]string{"Result", result.Message},
		[2]string{"Conflicts", conflicts},
	)
}
