package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/ai-data-assistant/cmd/assistantctl/ui"
	"github.com/redmonkez12/ai-data-assistant/internal/auth"
	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/database"
	"github.com/redmonkez12/ai-data-assistant/internal/email"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/token"
	"github.com/redmonkez12/ai-data-assistant/internal/user"
	"github.com/redmonkez12/ai-data-assistant/internal/validation"
)

// env is the database-backed state shared by the store commands
type env struct {
	cfg       *config.Config
	sqlDB     *sql.DB
	store     *auth.BunStore
	directory *user.Directory
	service   *auth.Service
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Auth.UsesDatabase() {
		return nil, fmt.Errorf("AUTH_PROVIDER is %q; store commands need the database provider", cfg.Auth.Provider)
	}

	sqlDB, err := database.Open(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	hasher := password.NewHasher(password.DefaultCost)
	issuer := token.NewIssuer()
	store := auth.NewBunStore(database.NewBunDB(sqlDB))

	provider, err := auth.NewDatabaseProvider(store.Users(), hasher, time.Now)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &env{
		cfg:       cfg,
		sqlDB:     sqlDB,
		store:     store,
		directory: user.NewDirectory(store.Users(), hasher, issuer, cfg.Auth.VerificationTokenTTL),
		service: auth.NewService(auth.ServiceDeps{
			Store:    store,
			Provider: provider,
			Hasher:   hasher,
			Issuer:   issuer,
			Logger:   logging.NewLogger(false),
		}, cfg.Auth),
	}, nil
}

func (e *env) Close() {
	_ = e.sqlDB.Close()
}

// withEnv opens the store for the lifetime of fn
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := openEnv(ctx)
	if err != nil {
		ui.PrintError(cmd.ErrOrStderr(), err.Error())
		return err
	}
	defer e.Close()

	if err := fn(ctx, e); err != nil {
		ui.PrintError(cmd.ErrOrStderr(), err.Error())
		return err
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		if err := database.Migrate(ctx, e.sqlDB); err != nil {
			return err
		}

		version, err := database.MigrationVersion(ctx, e.sqlDB)
		if err != nil {
			return err
		}

		ui.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Database at migration %d", version))
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		version, err := database.MigrationVersion(ctx, e.sqlDB)
		if err != nil {
			return err
		}

		count, err := e.directory.Count(ctx)
		if err != nil {
			return err
		}

		ui.PrintStatus(cmd.OutOrStdout(), ui.Status{
			Provider:         e.service.Mode(),
			MigrationVersion: version,
			Users:            count,
		})
		return nil
	})
}

func runPurge(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		result, err := e.service.PurgeExpired(ctx)
		if err != nil {
			return err
		}

		ui.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed %d reset tokens and %d sessions", result.ResetTokens, result.Sessions))
		return nil
	})
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	cost, _ := cmd.Flags().GetInt("cost")
	if cost == 0 {
		cost = password.DefaultCost
	}

	var (
		plaintext string
		err       error
	)
	if fromStdin {
		plaintext, err = readPassword(cmd.InOrStdin())
	} else {
		plaintext, err = ui.RunPasswordForm()
	}
	if err != nil {
		return err
	}

	// The static file accepts any password; the policy only applies to registration
	if problem := validation.PasswordProblem(plaintext); problem != "" {
		ui.PrintWarning(cmd.ErrOrStderr(), problem)
	}

	hash, err := password.NewHasher(cost).Hash(plaintext)
	if err != nil {
		ui.PrintError(cmd.ErrOrStderr(), err.Error())
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	emailAddr, _ := cmd.Flags().GetString("email")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	verified, _ := cmd.Flags().GetBool("verified")

	in := &ui.UserInput{Username: username, Email: emailAddr, Verified: verified}
	if fromStdin {
		plaintext, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		in.Password = plaintext
	}
	in.Normalize()

	// Interactive mode for whatever the flags left out
	if !in.Complete() {
		if err := ui.RunUserForm(in); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	if err := ui.ValidateUserInput(in); err != nil {
		ui.PrintError(cmd.ErrOrStderr(), err.Error())
		return err
	}

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		create := e.directory.CreateUser
		if in.Verified {
			create = e.directory.CreateVerifiedUser
		}

		u, err := create(ctx, in.Username, in.Email, in.Password)
		if err != nil {
			return err
		}

		ui.PrintUser(cmd.OutOrStdout(), "Account created", u)
		if !u.IsVerified && u.VerificationToken != nil {
			links := email.Links{BaseURL: e.cfg.Email.BaseURL}
			ui.PrintHint(cmd.OutOrStdout(), "Verification link: "+links.Verification(*u.VerificationToken))
		}
		return nil
	})
}

func runUserVerify(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		u, err := e.directory.ForceVerify(ctx, args[0])
		if err != nil {
			return describeLookup(args[0], err)
		}

		ui.PrintUser(cmd.OutOrStdout(), "Account verified", u)
		return nil
	})
}

func runSetActive(active bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, func(ctx context.Context, e *env) error {
			u, err := e.directory.SetActive(ctx, args[0], active)
			if err != nil {
				return describeLookup(args[0], err)
			}

			title := "Account reactivated"
			if !active {
				title = "Account deactivated"
			}
			ui.PrintUser(cmd.OutOrStdout(), title, u)
			return nil
		})
	}
}

func runUserShow(cmd *cobra.Command, args []string) error {
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		u, err := e.directory.FindByIdentifier(ctx, args[0])
		if err != nil {
			return describeLookup(args[0], err)
		}

		ui.PrintUser(cmd.OutOrStdout(), "Account", u)
		return nil
	})
}

func describeLookup(identifier string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("no account with username or email %q", identifier)
	}
	return err
}

// readPassword reads the first line of r
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	plaintext := strings.TrimRight(line, "\r\n")
	if plaintext == "" {
		return "", errors.New("password is required")
	}
	return plaintext, nil
}
