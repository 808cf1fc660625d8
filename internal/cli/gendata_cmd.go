package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"surveytracker/internal/exporter"
	"surveytracker/internal/files"
)

func newGenDataCmd(app *App) *cobra.Command {
	opts := exporter.DefaultGeneratorOptions()
	var out, teachers string
	cmd := &cobra.Command{
		Use:   "gendata",
		Short: "Write synthetic pre/post survey exports and a teacher configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := firstNonEmpty(out, app.Paths.DownloadsDir)
			gen := exporter.NewGenerator(exporter.NewCSVWriter(dir, app.Logger), opts)
			written, err := gen.Generate()
			if err != nil {
				return err
			}

			// teachers.csv is written first; move it out of the export directory
			// so a report run over dir does not pick it up.
			if len(written) > 0 && filepath.Base(written[0]) == "teachers.csv" {
				target := firstNonEmpty(teachers, app.Paths.TeachersFile)
				if target != written[0] {
					if err := moveFile(files.NewManager(app.Paths, app.Logger), written[0], target); err != nil {
						return err
					}
					written[0] = target
				}
			}

			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "export directory (default: data/downloads)")
	cmd.Flags().StringVar(&teachers, "teachers", "", "teacher configuration path (default: teachers.csv next to the executable)")
	cmd.Flags().IntVar(&opts.Files, "files", opts.Files, "number of pre/post file pairs")
	cmd.Flags().IntVar(&opts.Rows, "rows", opts.Rows, "rows per file")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random one")
	cmd.Flags().IntVar(&opts.Days, "days", opts.Days, "days of responses before now")
	return cmd
}

func moveFile(m *files.Manager, from, to string) error {
	data, err := os.ReadFile(from)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", from, err)
	}
	if err := m.WriteFile(to, data); err != nil {
		return err
	}
	return os.Remove(from)
}
