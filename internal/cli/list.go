package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	models "portfolio/internal/domain/models/portfolio"

	"github.com/spf13/cobra"
)

// ListOptions holds the filter flags of the ls command.
type ListOptions struct {
	Family string
	Status string
	Search string
	Sort   string
	Desc   bool
}

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "ls <portfolio-id> [folder-id]",
		Short: "List the documents of a folder",
		Long: `List the documents of a folder, filtered and sorted the way the explorer does.

Without a folder id the portfolio root is listed.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID := ""
			if len(args) == 2 {
				folderID = args[1]
			}
			return runList(rootOpts, opts, args[0], folderID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Family, "family", "", "only documents of this format family (e.g. pdf, image, word)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only documents with this review status")
	cmd.Flags().StringVar(&opts.Search, "search", "", "case-insensitive substring of the file name")
	cmd.Flags().StringVar(&opts.Sort, "sort", string(models.DefaultSortField), "sort field (name|uploaded_at|size_bytes|format)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")

	return cmd
}

func (o *ListOptions) criteria() models.FilterCriteria {
	c := models.FilterCriteria{
		FormatFamily:  o.Family,
		Status:        models.DocumentStatus(o.Status),
		SearchTerm:    o.Search,
		SortField:     models.SortField(o.Sort),
		SortDirection: models.SortAscending,
	}
	if o.Desc {
		c.SortDirection = models.SortDescending
	}
	return c
}

func runList(rootOpts *RootOptions, opts *ListOptions, portfolioID, folderID string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	ctx := cmd.Context()

	env, err := openEnvironment(ctx, rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, "cannot start", err)
	}
	defer env.close()

	explorer := env.services.NewExplorer()
	if _, err := explorer.SetCriteria(opts.criteria()); err != nil {
		return formatter.Fail(ExitCommandError, "invalid filter", err)
	}

	view, err := explorer.Open(ctx, portfolioID)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open portfolio "+portfolioID, err)
	}
	if folderID != "" && folderID != view.CurrentFolderID {
		if view, err = explorer.NavigateTo(ctx, folderID); err != nil {
			return formatter.Fail(ExitCommandError, "failed to open folder "+folderID, err)
		}
	}
	formatter.VerboseLog("Listing %s with %d document(s)", view.CurrentFolderID, len(view.Documents))

	return formatter.Success(view, func(w io.Writer) {
		printListing(w, view)
	})
}

func printListing(w io.Writer, view *models.ViewModel) {
	names := make([]string, len(view.Breadcrumb))
	for i, f := range view.Breadcrumb {
		names[i] = f.Name
	}
	fmt.Fprintf(w, "%s\n\n", strings.Join(names, " / "))

	if len(view.Documents) == 0 {
		fmt.Fprintln(w, "(no documents)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tSTATUS\tUPLOADED")
	for _, doc := range view.Documents {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			doc.OriginalName,
			doc.Format,
			formatBytes(doc.SizeBytes),
			doc.Status,
			doc.UploadedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}
