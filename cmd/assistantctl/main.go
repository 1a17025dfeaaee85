package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "assistantctl",
		Short:         "Operate the AI Data Assistant credential store",
		Long:          "Maintenance commands for accounts, migrations and expired tokens. Database settings are read from the environment or .env, like the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration version and user count",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired password reset tokens and sessions",
		Args:  cobra.NoArgs,
		RunE:  runPurge,
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for the static credentials file",
		Args:  cobra.NoArgs,
		RunE:  runHashPassword,
	}
	hashCmd.Flags().Bool("password-stdin", false, "Read the password from stdin instead of prompting")
	hashCmd.Flags().Int("cost", 0, "bcrypt cost (default 12)")

	// user command group
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long:  "Create an account. Missing fields are asked for interactively.",
		Args:  cobra.NoArgs,
		RunE:  runUserCreate,
	}

	// Flags for non-interactive mode (CI/scripting)
	createCmd.Flags().String("username", "", "Username")
	createCmd.Flags().String("email", "", "Email address")
	createCmd.Flags().Bool("password-stdin", false, "Read the password from stdin")
	createCmd.Flags().Bool("verified", false, "Mark the account verified (admin accounts)")

	verifyCmd := &cobra.Command{
		Use:   "verify <username|email>",
		Short: "Mark an account verified without a token",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserVerify,
	}

	deactivateCmd := &cobra.Command{
		Use:   "deactivate <username|email>",
		Short: "Block an account from logging in",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetActive(false),
	}

	activateCmd := &cobra.Command{
		Use:   "activate <username|email>",
		Short: "Reactivate a deactivated account",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetActive(true),
	}

	showCmd := &cobra.Command{
		Use:   "show <username|email>",
		Short: "Print an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserShow,
	}

	userCmd.AddCommand(createCmd, verifyCmd, deactivateCmd, activateCmd, showCmd)
	rootCmd.AddCommand(migrateCmd, statusCmd, purgeCmd, hashCmd, userCmd)

	return rootCmd
}
