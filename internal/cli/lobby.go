package cli

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/codeduel-go/internal/model"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Browse lobbies",
	}

	cmd.AddCommand(newLobbyListCmd())
	cmd.AddCommand(newLobbyGetCmd())

	return cmd
}

func newLobbyListCmd() *cobra.Command {
	var (
		search string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open public lobbies, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if search != "" {
				query.Set("search", search)
			}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}

			var result model.LobbyListPayload
			if err := client.Get("/api/v1/lobbies", query, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Match lobby name or id")
	cmd.Flags().IntVar(&page, "page", 0, "Page number (default: first)")

	return cmd
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <lobby-id>",
		Short: "Get lobby details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.LobbyView
			if err := client.Get("/api/v1/lobbies/"+url.PathEscape(args[0]), nil, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
