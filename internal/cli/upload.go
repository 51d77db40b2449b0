package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	models "portfolio/internal/domain/models/portfolio"

	"github.com/spf13/cobra"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <folder-id> <file>...",
		Short: "Upload files into a folder",
		Long: `Upload local files into a folder through the upload validator.

Files with an unsupported extension or over the size limit are rejected without
contacting the backend. The remaining files are uploaded in the order given, and
one failure never stops the rest. Exits 1 when any file was rejected or failed.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runUpload(opts *RootOptions, folderID string, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	files := make([]models.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return formatter.Fail(ExitCommandError, "cannot read "+p, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return formatter.Fail(ExitCommandError, "cannot stat "+p, err)
		}
		if info.IsDir() {
			return formatter.Fail(ExitCommandError, p+" is a directory", nil)
		}
		files = append(files, models.UploadFile{
			Name:    filepath.Base(p),
			Size:    info.Size(),
			Content: f,
		})
	}

	env, err := openEnvironment(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return formatter.Fail(ExitCommandError, "cannot start", err)
	}
	defer env.close()

	report, err := env.services.Uploads.UploadBatch(ctx, folderID, files)
	if err != nil {
		return formatter.Fail(ExitCommandError, "upload failed", err)
	}

	if err := formatter.Success(report, func(w io.Writer) {
		printReport(w, report)
	}); err != nil {
		return err
	}
	if report.Summary.Rejected > 0 || report.Summary.Failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d file(s) not uploaded", report.Summary.Rejected+report.Summary.Failed, report.Summary.TotalFiles))
	}
	return nil
}

func printReport(w io.Writer, report *models.UploadReport) {
	for _, doc := range report.Uploaded {
		fmt.Fprintf(w, "uploaded  %s (%s)\n", doc.OriginalName, formatBytes(doc.SizeBytes))
	}
	for _, r := range report.Rejected {
		fmt.Fprintf(w, "rejected  %s: %s\n", r.File, r.Message)
	}
	for _, f := range report.Failed {
		retry := ""
		if f.Retryable {
			retry = " (retryable)"
		}
		fmt.Fprintf(w, "failed    %s: %s%s\n", f.File, f.Error, retry)
	}
	s := report.Summary
	fmt.Fprintf(w, "\n%d uploaded, %d rejected, %d failed of %d\n", s.Uploaded, s.Rejected, s.Failed, s.TotalFiles)
}
