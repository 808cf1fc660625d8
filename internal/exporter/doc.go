// Package exporter writes survey tracker output files.
//
// BuildWorkbook renders an aggregate state as the two-sheet report workbook
// ("Survey Report" and "Teacher Summary") and WriteWorkbook persists it
// through a temporary file so a failed write leaves nothing at the target
// path.
//
// CSVWriter and StreamWriter write plain CSV, and Generator uses them to
// produce synthetic survey exports for demos and load testing:
//
//	gen := exporter.NewGenerator(exporter.NewCSVWriter(dir, logger), exporter.GeneratorOptions{Seed: 7})
//	files, err := gen.Generate()
package exporter
