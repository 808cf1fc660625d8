package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"surveytracker/internal/config"
	"surveytracker/internal/files"
	"surveytracker/internal/services"
	"surveytracker/internal/validation"
)

type reportFlags struct {
	in        string
	teachers  string
	out       string
	dateField string
}

func newReportCmd(app *App) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the report workbook from the exports in a directory",
		Long: `Discovers .csv and .xlsx exports in the input directory, classifies them
as pre or post by file name, and writes a two-sheet workbook to the output
directory. Files that fail validation are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runReport(cmd, app, f)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.in, "in", "", "input directory (default: data/downloads next to the executable)")
	cmd.Flags().StringVar(&f.teachers, "teachers", "", "teacher configuration CSV (default: teachers.csv next to the executable)")
	cmd.Flags().StringVar(&f.out, "out", "", "output directory for the workbook (default: data/reports)")
	cmd.Flags().StringVar(&f.dateField, "date-field", app.Config.Report.DateField,
		fmt.Sprintf("response date column, %s or %s", config.DateFieldEndTime, config.DateFieldStartTime))
	return cmd
}

func runReport(cmd *cobra.Command, app *App, f reportFlags) (*services.RunResult, error) {
	run := services.DirectoryRun{
		InputDir:     firstNonEmpty(f.in, app.Paths.DownloadsDir),
		TeachersFile: firstNonEmpty(f.teachers, app.Paths.TeachersFile),
		OutputDir:    firstNonEmpty(f.out, app.Paths.ReportsDir),
		DateField:    f.dateField,
	}

	v := validation.NewFileValidator(app.Logger)
	found, err := v.ValidateInputDirectory(run.InputDir)
	if err != nil {
		return nil, err
	}
	hasTeachers, err := v.ValidateTeacherFile(run.TeachersFile)
	if err != nil {
		return nil, err
	}
	if err := v.ValidateOutputDirectory(run.OutputDir); err != nil {
		return nil, err
	}

	app.Logger.InfoContext(cmd.Context(), "Starting report run",
		"input_dir", run.InputDir,
		"exports_found", found,
		"teachers_file", run.TeachersFile,
		"teachers_configured", hasTeachers,
		"output_dir", run.OutputDir)

	svc := services.NewReportService(app.Config.Report, app.Logger, nil, nil)
	result, err := svc.RunDirectory(cmd.Context(), files.NewManager(app.Paths, app.Logger), run)
	if err != nil {
		return nil, fmt.Errorf("report run failed: %w", err)
	}
	return result, nil
}

func printResult(w io.Writer, r *services.RunResult) {
	fmt.Fprintf(w, "Report written: %s\n", r.WorkbookPath)
	fmt.Fprintf(w, "Status:             %s\n", r.Status)
	fmt.Fprintf(w, "Files processed:    %d\n", r.FilesProcessed)
	fmt.Fprintf(w, "Valid responses:    %d\n", r.ValidResponses)
	fmt.Fprintf(w, "Invalid responses:  %d\n", r.InvalidResponses)
	fmt.Fprintf(w, "Rows skipped:       %d\n", len(r.RowErrors))
	fmt.Fprintf(w, "Teachers with data: %d\n", r.Summary.TotalTeachers)
	fmt.Fprintf(w, "Date range:         %s\n", r.Summary.DateRange)
	fmt.Fprintf(w, "Avg per teacher:    %.2f\n", r.Summary.AvgResponsesPerTeacher)

	if len(r.FileErrors) > 0 {
		fmt.Fprintln(w, "Skipped files:")
		for _, fe := range r.FileErrors {
			fmt.Fprintf(w, "  - %s [%s] %s\n", fe.File, fe.Type, fe.Message)
		}
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
