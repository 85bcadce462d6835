package cli

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newLeaderboardCmd() *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show a page of the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Leaderboard
			if err := client.Get(cmd.Context(), "/api/v1/leaderboard"+pageQuery(page, limit), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "Entries per page (max 100)")

	return cmd
}

func newTopCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top-ranked users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TopRanking
			if err := client.Get(cmd.Context(), "/api/v1/leaderboard/top"+pageQuery(0, limit), &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of users (max 100)")

	return cmd
}

// pageQuery encodes non-zero page and limit values as a query string
func pageQuery(page, limit int) string {
	q := url.Values{}
	if page != 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit != 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
