package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stolasapp/animes/internal/client"
	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/storage/db"
)

type apiFlags struct {
	url      string
	username string
}

func apiCommand() *cobra.Command {
	var flags apiFlags
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call a running API server",
		Long: "Calls the HTTP API with Basic credentials. The password is read from stdin\n" +
			"or through the interactive prompt.",
	}
	cmd.PersistentFlags().StringVar(&flags.url, "url", "", "base URL of the API (default http://<web_address>)")
	cmd.PersistentFlags().StringVarP(&flags.username, "username", "u", "", "username to authenticate as")
	_ = cmd.MarkPersistentFlagRequired("username")

	cmd.AddCommand(
		apiListCommand(&flags),
		apiAllCommand(&flags),
		apiGetCommand(&flags),
		apiFindCommand(&flags),
		apiCreateCommand(&flags),
		apiReplaceCommand(&flags),
		apiDeleteCommand(&flags),
		apiUserCommand(&flags),
	)
	return cmd
}

func apiListCommand(flags *apiFlags) *cobra.Command {
	var opts client.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of animes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			page, err := api.ListAnimes(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		},
	}
	cmd.Flags().Int64Var(&opts.Page, "page", 0, "zero-based page index")
	cmd.Flags().Int64Var(&opts.Size, "size", 0, "page size")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort property (id or name)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "CEL filter over this.id and this.name")
	return cmd
}

func apiAllCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List every anime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			animes, err := api.ListAllAnimes(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, animes)
		},
	}
}

func apiGetCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Get an anime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			anime, err := api.GetAnime(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, anime)
		},
	}
}

func apiFindCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "find NAME",
		Short: "Find animes by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			animes, err := api.FindAnimesByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, animes)
		},
	}
}

func apiCreateCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an anime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			anime, err := api.CreateAnime(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, anime)
		},
	}
}

func apiReplaceCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "replace ID NAME",
		Short: "Replace an anime",
		Args:  cobra.ExactArgs(2), //nolint:mnd // id and name
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			return api.ReplaceAnime(cmd.Context(), db.Anime{ID: id, Name: args[1]})
		},
	}
}

func apiDeleteCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an anime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			return api.DeleteAnime(cmd.Context(), id)
		},
	}
}

func apiUserCommand(flags *apiFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "user ID",
		Short: "Get a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			api, err := flags.client(cmd)
			if err != nil {
				return err
			}
			user, err := api.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
}

// client builds an API client, falling back to the configured web address
// when no URL was given.
func (f *apiFlags) client(cmd *cobra.Command) (*client.Client, error) {
	baseURL := f.url
	if baseURL == "" {
		cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
		if !ok {
			return nil, errors.New("config file resolution failed")
		}
		baseURL = "http://" + cfg.WebAddress
	}
	passwd, err := prompt(cmd, "password: ", true)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return client.New(baseURL, f.username, string(passwd))
}

func parseIDArg(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", arg, err)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
