package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <file_id> <question>...",
	Short: "Ask a question answered only from a document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		ans, err := sess.svc.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}

		fmt.Println(ans.Text)
		if show, _ := cmd.Flags().GetBool("chunks"); show && len(ans.ChunksUsed) > 0 {
			fmt.Println()
			fmt.Println(strings.Repeat("─", 60))
			for _, c := range ans.ChunksUsed {
				fmt.Printf("[%s] position %d, score %.3f\n", c.Label, c.Position, c.Score)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("chunks", false, "List the chunks given to the model")
}
