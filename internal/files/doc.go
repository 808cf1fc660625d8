// Package files finds survey exports on disk, loads them for report runs and
// names the workbooks runs produce.
//
// Discovery lists exports (.csv, .xlsx, .xlsm) and generated reports in a
// directory. Manager reads discovered files into dataprocessing.SourceFile
// values, stores downloads and reads the teacher configuration.
//
//	d := files.NewDiscovery("")
//	exports, err := d.FindSurveyExports(paths.DownloadsDir)
//	sources, err := files.NewManager(paths, logger).LoadSourceFiles(exports)
package files
