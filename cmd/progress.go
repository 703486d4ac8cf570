package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress <student_id> <file_id>",
	Short: "Show a student's results and study roadmap",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		p, err := sess.svc.StudentProgress(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Student:   %s\n", p.StudentID)
		fmt.Printf("Document:  %s\n", p.DocumentID)
		fmt.Printf("Attempted: %d\n", p.TotalAttempted)
		fmt.Printf("Correct:   %d (%.1f%%)\n", p.Correct, p.Accuracy)

		if len(p.WeakTopics) > 0 {
			fmt.Println()
			fmt.Printf("%-60s  %5s  %6s\n", "Missed question", "Times", "Weight")
			fmt.Println(strings.Repeat("─", 75))
			for _, t := range p.WeakTopics {
				fmt.Printf("%-60s  %5d  %6.2f\n", truncate(t.Question, 60), t.TimesWrong, t.Weight)
			}
		}

		fmt.Println()
		fmt.Println(p.Roadmap)
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <file_id>",
	Short: "Show every student's results on a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		d, err := sess.svc.TeacherDashboard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(d.Students) == 0 {
			fmt.Println("No attempts recorded yet.")
			return nil
		}

		fmt.Printf("%-24s  %9s  %7s  %8s\n", "Student", "Attempted", "Correct", "Accuracy")
		fmt.Println(strings.Repeat("─", 54))
		for _, s := range d.Students {
			fmt.Printf("%-24s  %9d  %7d  %7.1f%%\n", truncate(s.StudentID, 24), s.Attempted, s.Correct, s.Accuracy)
		}
		fmt.Println(strings.Repeat("─", 54))
		fmt.Printf("%-24s  %9s  %7s  %7.1f%%\n", "CLASS AVERAGE", "", "", d.ClassAverage)
		return nil
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer sess.Close()

		docs, err := sess.svc.Documents(cmd.Context())
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents ingested.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %6s  %s\n", "ID", "Ingested", "Chunks", "File")
		fmt.Println(strings.Repeat("─", 90))
		for _, d := range docs {
			fmt.Printf("%-36s  %-19s  %6d  %s\n",
				d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04:05"), d.ChunkCount, d.Filename)
		}
		return nil
	},
}
