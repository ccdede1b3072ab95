package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eventmanager/config"
	"eventmanager/internal/adapters/auth"
	"eventmanager/internal/domain"
)

func newTokenCommand() *cobra.Command {
	var (
		userID string
		email  string
		roles  []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		Long: `Issue a bearer token for local testing and service accounts.

Examples:
  eventsapi token --user 0b7e... --role organizer
  eventsapi token --user 5c1d... --role audience --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if err := uuid.Validate(userID); err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			for _, r := range roles {
				if _, ok := domain.ParseRole(r); !ok {
					return fmt.Errorf("unknown role %q", r)
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(userID, email, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID placed in the subject claim")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role to grant (organizer, audience); repeatable")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
