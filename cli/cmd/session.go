// ABOUTME: Session commands for flctl: login, logout and whoami
// ABOUTME: Drive the auth store and persist cookies between invocations

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/authstore"
	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/internal/styles"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

var (
	loginEmail    string
	loginPassword string
	googleQuery   string
)

// promptCredentials asks for whatever is missing. Replaced in tests.
var promptCredentials = func(email, password *string) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email or phone").
			Value(email).
			Validate(required("email or phone")))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(required("password")))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	Long: `Sign in with email or phone and password. Missing values are prompted for.
With --google-callback, completes a Google sign-in using the OAuth callback query instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		var exitCode int
		if googleQuery != "" {
			exitCode = runGoogleLogin(ctx, os.Stdout, googleQuery)
		} else {
			exitCode = runLogin(ctx, os.Stdout, loginEmail, loginPassword)
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if exitCode := runLogout(ctx, os.Stdout); exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if exitCode := runWhoami(ctx, os.Stdout); exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email or phone")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password")
	loginCmd.Flags().StringVar(&googleQuery, "google-callback", "", "OAuth callback query string (code=...&state=...)")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(ctx context.Context, w io.Writer, email, password string) int {
	if email == "" || password == "" {
		if err := promptCredentials(&email, &password); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitUsage
		}
	}

	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	store := authstore.New(c)
	if err := store.Login(ctx, email, password); err != nil {
		printError(w, err)
		return exitCodeFor(err)
	}
	saveSession(w, c)

	return printUser(w, store)
}

func runGoogleLogin(ctx context.Context, w io.Writer, query string) int {
	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	store := authstore.New(c)
	if err := store.LoginWithGoogle(ctx, strings.TrimPrefix(query, "?")); err != nil {
		printError(w, err)
		return exitCodeFor(err)
	}
	saveSession(w, c)

	return printUser(w, store)
}

func runLogout(ctx context.Context, w io.Writer) int {
	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	store := authstore.New(c)
	err = store.Logout(ctx)
	saveSession(w, c)
	if err != nil {
		printError(w, err)
		return exitBackend
	}
	fmt.Fprintln(w, "Logged out")
	return exitOK
}

func runWhoami(ctx context.Context, w io.Writer) int {
	c, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}
	store := authstore.New(c)
	if err := store.Hydrate(ctx); err != nil {
		printError(w, err)
		return exitBackend
	}
	saveSession(w, c)

	if !store.IsAuthenticated() {
		fmt.Fprintln(w, "Not logged in. Run 'flctl login' first.")
		return exitUsage
	}
	return printUser(w, store)
}

func printUser(w io.Writer, store *authstore.Store) int {
	user := store.User()
	if user == nil {
		user = &models.User{}
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]any{
			"state":          store.State().String(),
			"user":           user,
			"profile_status": store.ProfileStatus(),
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return exitOK
	}

	roles := make([]string, 0, len(user.Role))
	for _, r := range user.Role {
		roles = append(roles, string(r))
	}
	status := string(store.ProfileStatus())
	if store.ProfileStatus() == authstore.ProfileComplete {
		status = styles.StatusOK.Render(status)
	} else {
		status = styles.StatusWarning.Render(status)
	}

	fmt.Fprintln(w, styles.Title.Render("Signed in"))
	fmt.Fprintln(w, styles.Rows(
		[2]string{"Name", user.Name},
		[2]string{"Email", user.Email},
		[2]string{"Roles", strings.Join(roles, ", ")},
		[2]string{"Profile", status},
	))
	return exitOK
}
