package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newResponseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Quiz response commands",
	}

	cmd.AddCommand(newResponseSubmitCmd())

	return cmd
}

func newResponseSubmitCmd() *cobra.Command {
	var question string
	var correct, wrong bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record an answer outcome for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if correct == wrong {
				return fmt.Errorf("exactly one of --correct or --wrong is required")
			}

			req := map[string]any{
				"question_id": question,
				"correct":     correct,
			}
			var result ScoreRecord
			if err := client.Post(cmd.Context(), "/api/v1/responses", req, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&question, "question", "", "Question ID (required)")
	cmd.Flags().BoolVar(&correct, "correct", false, "The answer was correct")
	cmd.Flags().BoolVar(&wrong, "wrong", false, "The answer was wrong")
	_ = cmd.MarkFlagRequired("question")

	return cmd
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score commands",
	}

	cmd.AddCommand(newScoreSyncCmd())
	cmd.AddCommand(newScoreRankCmd())

	return cmd
}

func newScoreSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [user-id]",
		Short: "Recompute a user's score (defaults to the current user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUserID(cmd, args)
			if err != nil {
				return err
			}

			var result ScoreRecord
			if err := client.Post(cmd.Context(), "/api/v1/scores/"+url.PathEscape(id)+"/sync", nil, &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newScoreRankCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rank [user-id]",
		Short: "Show a user's rank (defaults to the current user)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := currentUserID(cmd, args)
			if err != nil {
				return err
			}

			var result Rank
			if err := client.Get(cmd.Context(), "/api/v1/scores/"+url.PathEscape(id)+"/rank", &result); err != nil {
				return err
			}

			newOutput(cmd).Print(result)
			return nil
		},
	}
}
