package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>...",
	Short: "Ingest one or more PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document, its collection and its history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var failed int
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s %s: %v\n", errColor("failed"), path, err)
			failed++
			continue
		}

		result, err := a.Service.Ingest(cmd.Context(), entities.Upload{Filename: filepath.Base(path), Data: data})
		if err != nil {
			cmd.PrintErrf("%s %s: %v\n", errColor("failed"), path, err)
			failed++
			continue
		}

		cmd.Printf("%s #%d %s (%d pages, %d chunks) -> %s\n",
			okColor("ingested"), result.Document.ID, result.Document.Filename,
			result.Pages, result.Chunks, result.Document.CollectionID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.Service.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tSIZE\tCOLLECTION\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.Filename, humanSize(d.Size), d.CollectionID, d.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
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
	count, err := a.Index.Count(cmd.Context(), doc.CollectionID)
	chunks := fmt.Sprint(count)
	if err != nil {
		chunks = warnColor("collection missing")
	}

	cmd.Printf("%s %d\n", labelColor("Document"), doc.ID)
	cmd.Printf("  Filename:   %s\n", doc.Filename)
	cmd.Printf("  Size:       %s\n", humanSize(doc.Size))
	cmd.Printf("  Collection: %s\n", doc.CollectionID)
	cmd.Printf("  Chunks:     %s\n", chunks)
	cmd.Printf("  Created:    %s\n", doc.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.DeleteDocument(cmd.Context(), id); err != nil {
		return err
	}
	cmd.Printf("%s document %d\n", okColor("deleted"), id)
	return nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n"+prefix)
}
