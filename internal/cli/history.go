package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/annotstore/annotstore/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded store builds",
	Long:  `Display the runs recorded in the catalog, newest first.`,
	Run:   runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "number", "n", 0, "Limit the number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContext()

	catalog, err := store.OpenCatalog(c.Config.CatalogDatabasePath())
	if err != nil {
		exitError("failed to open run catalog: %v", err)
	}
	defer catalog.Close()

	runs, err := catalog.Runs(historyLimit)
	if err != nil {
		exitError("failed to read run catalog: %v", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	for _, run := range runs {
		yellow.Printf("run %d ", run.ID)
		cyan.Printf("%s ", run.Command)
		fmt.Printf("%s\n", run.StorePath)
		fmt.Printf("Date:     %s\n", run.StartedAt.Local().Format("Mon Jan 2 15:04:05 2006"))
		fmt.Printf("Duration: %s\n", run.Duration)
		for _, source := range run.Sources {
			if source.Initial {
				fmt.Printf("    %s files=%d records=%d (initial)\n",
					source.Prefix, source.Files, source.Parsed)
				continue
			}
			fmt.Printf("    %s files=%d records=%d merged=%d unresolved=%d\n",
				source.Prefix, source.Files, source.Parsed, source.Merged, source.Unresolved)
		}
		fmt.Println()
	}
}
