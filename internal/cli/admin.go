package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/seed"
	"github.com/rulercosta/neuralwired/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitDBCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create tables and default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			_, err = fmt.Fprintf(out, "database ready (%s)\n", rt.cfg.DatabaseDriver)
			return err
		},
	}
}

func newCreateAdminCommand(out io.Writer) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the author account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			password = strings.TrimSpace(password)
			if username == "" || password == "" {
				return errors.New("create-admin: --username and --password are required")
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			created, err := db.EnsureUser(cmd.Context(), rt.db, username, password)
			if err != nil {
				return fmt.Errorf("create-admin: %w", err)
			}
			if !created {
				_, err = fmt.Fprintf(out, "user %s already exists\n", username)
				return err
			}
			rt.logger.Info("created admin user", zap.String("username", username))
			_, err = fmt.Fprintf(out, "created user %s\n", username)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Author login name")
	cmd.Flags().StringVar(&password, "password", "", "Author password, stored as a bcrypt hash")
	return cmd
}

func newSeedCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample pages and posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			editor := service.Editor{Username: rt.cfg.AdminUsername}
			result, err := seed.Run(cmd.Context(), rt.db, seed.Options{Editor: editor})
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			_, err = fmt.Fprintf(out, "pages: %d created, %d skipped\nposts: %d created, %d skipped\n",
				result.Pages, result.SkippedPages, result.Posts, result.SkippedPosts)
			return err
		},
	}
}
