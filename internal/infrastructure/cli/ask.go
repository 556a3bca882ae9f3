package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prathap024-ctrl/pdf-rag/internal/infrastructure/tui"
)

var showContext bool

var askCmd = &cobra.Command{
	Use:   "ask <id> <question>",
	Short: "Answer a question about one document",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show questions asked about a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var chatCmd = &cobra.Command{
	Use:   "chat <id>",
	Short: "Start an interactive chat about one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func init() {
	askCmd.Flags().BoolVar(&showContext, "context", false, "print the retrieved passages")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(chatCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Service.Answer(cmd.Context(), id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	cmd.Println(answer.Answer)
	if showContext {
		for i, c := range answer.Context {
			cmd.Printf("\n%s page %d, offset %d\n", labelColor(fmt.Sprintf("[%d]", i+1)), c.Page, c.Offset)
			cmd.Println(indent(c.Text, "    "))
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Service.History(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Printf("No questions asked about document %d.\n", id)
		return nil
	}
	for _, r := range records {
		cmd.Printf("%s %s\n", labelColor("Q:"), r.Question)
		cmd.Printf("%s %s\n", labelColor("A:"), r.Answer)
		cmd.Printf("   %s\n\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.Service.GetDocument(cmd.Context(), id)
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), a.Service, doc, 0)
}
