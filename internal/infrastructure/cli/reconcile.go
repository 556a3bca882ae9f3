package cli

import (
	"github.com/spf13/cobra"
)

var reconcileFlags struct {
	dryRun bool
	stale  bool
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove collections with no document, and optionally documents with no collection",
	Args:  cobra.NoArgs,
	RunE:  runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVarP(&reconcileFlags.dryRun, "dry-run", "n", false, "report without removing anything")
	reconcileCmd.Flags().BoolVar(&reconcileFlags.stale, "stale", false, "also remove documents whose collection is missing")

	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.NewReconciler(reconcileFlags.dryRun, reconcileFlags.stale).Run(cmd.Context())
	if err != nil {
		return err
	}

	verb := okColor("removed")
	if report.DryRun {
		verb = warnColor("would remove")
	}
	for _, name := range report.OrphanCollections {
		cmd.Printf("%s collection %s\n", verb, name)
	}
	for _, id := range report.StaleDocuments {
		cmd.Printf("%s document %d\n", verb, id)
	}
	if len(report.OrphanCollections) == 0 && len(report.StaleDocuments) == 0 {
		cmd.Println("Nothing to reconcile.")
	}
	return nil
}
