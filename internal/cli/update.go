package cli

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/annotstore/annotstore/internal/core"
	"github.com/annotstore/annotstore/internal/schema"
)

var updateCmd = &cobra.Command{
	Use:   "update <instruction-file> <store-file>",
	Short: "Revise an existing annotation store",
	Long: `Apply an update instruction file (JSON or YAML) to an existing store:
remove sources by prefix, replace sources, and add new ones. Removals are
applied first, then replacements, then additions.`,
	Args: cobra.ExactArgs(2),
	Run:  runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) {
	instructionPath, storePath := args[0], args[1]
	c := initContext()

	instruction, err := schema.LoadUpdate(instructionPath)
	if err != nil {
		exitError("invalid instructions: %v", err)
	}

	startedAt := time.Now()
	annotation, err := core.LoadAnnotation(storePath, c.Logger, c.Debug)
	if err != nil {
		exitError("failed to load store: %v", err)
	}
	result, err := annotation.Update(context.Background(), instruction)
	if err != nil {
		exitError("failed to update store: %v", err)
	}
	if err := annotation.Write(); err != nil {
		exitError("failed to write store: %v", err)
	}
	c.recordRun("update", storePath, startedAt, result)

	printBuildSummary(result)
	color.New(color.FgGreen).Printf("Store updated at %s\n", storePath)
}
