package cli

import (
	"fmt"
	"io"
	"strings"

	models "portfolio/internal/domain/models/portfolio"
	portfolio "portfolio/internal/service/portfolio"

	"github.com/spf13/cobra"
)

// TreeResult is the JSON payload of the tree command.
type TreeResult struct {
	PortfolioID string             `json:"portfolio_id"`
	FolderCount int                `json:"folder_count"`
	Root        *models.FolderNode `json:"root"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tree <portfolio-id>",
		Short:         "Print the folder hierarchy of a portfolio",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(rootOpts, args[0], cmd)
		},
	}
}

func runTree(opts *RootOptions, portfolioID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	env, err := openEnvironment(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, "cannot start", err)
	}
	defer env.close()

	root, err := env.directory.GetStructure(cmd.Context(), portfolioID)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load portfolio "+portfolioID, err)
	}
	tree, err := portfolio.NewTreeIndex(root)
	if err != nil {
		return formatter.Fail(ExitCommandError, "malformed folder tree", err)
	}
	formatter.VerboseLog("Loaded %d folder(s) for %s", tree.Len(), portfolioID)

	result := TreeResult{PortfolioID: portfolioID, FolderCount: tree.Len(), Root: root}
	return formatter.Success(result, func(w io.Writer) {
		printTree(w, tree)
	})
}

// printTree writes one line per folder in depth-first display order.
func printTree(w io.Writer, tree *portfolio.TreeIndex) {
	tree.Walk(func(f models.Folder) bool {
		fmt.Fprintf(w, "%s%s/ (%d)\n", strings.Repeat("  ", f.Depth), f.Name, f.DocumentCount)
		return true
	})
}
