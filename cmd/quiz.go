package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/coursemate/internal/quiz"
)

var quizCmd = &cobra.Command{
	Use:   "quiz <file_id>",
	Short: "Generate a multiple-choice quiz from a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("num")
		student, _ := cmd.Flags().GetString("student")
		asJSON, _ := cmd.Flags().GetBool("json")

		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		var res *quiz.Result
		if student != "" {
			ar, err := sess.svc.GenerateAdaptiveQuiz(cmd.Context(), student, args[0], n)
			if err != nil {
				return err
			}
			res = ar.Result
			for _, r := range ar.Repeats {
				fmt.Fprintf(os.Stderr, "note: %q restates missed question %q\n", r.Question, r.Missed)
			}
		} else {
			res, err = sess.svc.GenerateQuiz(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
		}

		switch {
		case res.NoContent:
			return fmt.Errorf("no content found for %s", args[0])
		case !res.OK():
			fmt.Fprintln(os.Stderr, "model output rejected:", res.Reason)
			fmt.Println(res.Raw)
			return nil
		case asJSON:
			return printJSON(res.Items)
		}

		for i, it := range res.Items {
			fmt.Printf("%d. %s\n", i+1, it.Question)
			for _, o := range it.Options {
				fmt.Printf("   %s) %s\n", o.Label, o.Text)
			}
			fmt.Printf("   Answer: %s. %s\n\n", it.Answer, it.Explanation)
		}
		return nil
	},
}

func init() {
	quizCmd.Flags().IntP("num", "n", quiz.DefaultCount, "Number of questions")
	quizCmd.Flags().String("student", "", "Target this student's recent mistakes")
	quizCmd.Flags().Bool("json", false, "Print the quiz as JSON")
}
