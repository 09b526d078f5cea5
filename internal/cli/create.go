package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/annotstore/annotstore/internal/core"
	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/schema"
)

var createCmd = &cobra.Command{
	Use:   "create <instruction-file> <store-file>",
	Short: "Build a new annotation store",
	Long: `Build a new annotation store from an instruction file (JSON or YAML)
describing the sources to parse and how to merge them. An existing store
file is replaced.`,
	Args: cobra.ExactArgs(2),
	Run:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) {
	instructionPath, storePath := args[0], args[1]
	c := initContext()

	sources, err := schema.LoadCreate(instructionPath)
	if err != nil {
		exitError("invalid instructions: %v", err)
	}

	startedAt := time.Now()
	annotation := core.NewAnnotation(storePath, c.Logger, c.Debug)
	result, err := annotation.Create(context.Background(), sources)
	if err != nil {
		exitError("failed to build store: %v", err)
	}
	if err := annotation.Write(); err != nil {
		exitError("failed to write store: %v", err)
	}
	c.recordRun("create", storePath, startedAt, result)

	printBuildSummary(result)
	color.New(color.FgGreen).Printf("Store written to %s\n", storePath)
}

// printBuildSummary prints one line per processed source.
func printBuildSummary(result models.BuildResult) {
	cyan := color.New(color.FgCyan)
	for _, source := range result.Sources {
		cyan.Printf("%s ", source.Prefix)
		if source.Initial {
			fmt.Printf("files=%d records=%d (initial)\n", source.Files, source.Parsed)
			continue
		}
		fmt.Printf("files=%d records=%d merged=%d", source.Files, source.Parsed, source.Merged)
		if source.Unresolved > 0 {
			color.New(color.FgYellow).Printf(" unresolved=%d", source.Unresolved)
		}
		fmt.Println()
	}
}
