package command

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stolasapp/animes/internal/sec"
	"github.com/stolasapp/animes/internal/storage"
	"github.com/stolasapp/animes/internal/storage/db"
)

const userListPageSize = 100

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
		userDeleteCommand(),
		userListCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	var (
		displayName string
		roles       []string
	)
	cmd := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create user",
		Long: "Creates or updates the credential record for the provided username and\n" +
			"password. Passwords may be provided via stdin or through the interactive prompt.",

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			parsed, err := parseRoles(roles)
			if err != nil {
				return err
			}
			hasher, err := sec.NewHasher(cfg.Security.BcryptCost)
			if err != nil {
				return err
			}

			username := args[0]
			user := db.User{
				Username: username,
				Name:     displayName,
				Roles:    parsed,
			}
			// updating an existing user keeps its ID
			if existing, err := store.GetUserByName(cmd.Context(), username); err == nil {
				user.ID = existing.ID
			} else if !errors.Is(err, storage.ErrNotFound) {
				return err
			}

			if passwd, err := prompt(cmd, "password: ", true); err != nil {
				return err
			} else if len(passwd) == 0 {
				return errors.New("password must not be empty")
			} else if user.PasswordHash, err = hasher.Hash(passwd); err != nil {
				return err
			} else if err = store.UpsertUser(cmd.Context(), user); err != nil {
				return err
			}

			logger.InfoContext(cmd.Context(), "saved user",
				slog.String("username", username),
				slog.Any("roles", parsed),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "display name of the user")
	cmd.Flags().StringSliceVar(&roles, "role", []string{string(sec.RoleUser)}, "roles granted to the user")
	return cmd
}

// parseRoles normalizes role flags, rejecting blank or comma-bearing values
// that could not be stored.
func parseRoles(raw []string) (db.Roles, error) {
	roles := make(db.Roles, 0, len(raw))
	for _, r := range raw {
		role := sec.ParseRole(r)
		if role == "" || strings.ContainsAny(string(role), ", ") {
			return nil, fmt.Errorf("invalid role %q", r)
		}
		roles = append(roles, string(role))
	}
	return roles, nil
}

func userDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete user",
		Long: "Permanently deletes the user's credential record. " +
			"This operation is permanent and irreversible.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (runErr error) {
			_, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			name := args[0]
			logger = logger.With(slog.String("username", name))
			user, err := store.GetUserByName(cmd.Context(), name)
			if err != nil {
				return err
			}
			resp, err := prompt(cmd, "Are you sure you want to delete this user? [y|N] ", false)
			if !bytes.Equal(resp, []byte{'y'}) || err != nil {
				logger.InfoContext(cmd.Context(), "aborted user deletion")
				return err
			}
			if err = store.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			logger.InfoContext(cmd.Context(), "user deleted")
			return nil
		},
	}
}

func userListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			_, _, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()
			return listUsers(cmd, store)
		},
	}
}

func listUsers(cmd *cobra.Command, users storage.Users) error {
	out := cmd.OutOrStdout()
	after := ""
	for {
		page, err := users.ListUsers(cmd.Context(), after, userListPageSize)
		if err != nil {
			return err
		}
		for _, user := range page {
			principal := sec.NewPrincipal(user)
			roles := make([]string, len(principal.Roles))
			for i, role := range principal.Roles {
				roles[i] = string(role)
			}
			if _, err = fmt.Fprintf(out, "%s\t%s\n", principal.Username, strings.Join(roles, ",")); err != nil {
				return err
			}
		}
		if len(page) < userListPageSize {
			return nil
		}
		after = page[len(page)-1].Username
	}
}
