// Package dataprocessing is the survey aggregation engine core. It turns
// assessment export files into per-teacher response aggregates.
//
// # Components
//
//	ValidateHeader    checks the standard column prefix and finds the unique test variables
//	ClassifyFilename  tags a file pre, post or none from its name
//	ReadTable         opens a CSV or XLSX export as a single-pass row stream
//	Extractor         yields one ResponseRecord per data row
//	TeacherDirectory  the configured teachers; unknown ids classify as "Other"
//	Aggregator        folds valid records into the survey and summary tables
//
// # Data Flow
//
//	SourceFile → ReadTable → ValidateHeader → Extractor.Records → Aggregator.Add → AggregateState
//
// # Usage
//
//	table, err := dataprocessing.ReadTable(src)
//	if err != nil {
//	    return err
//	}
//	layout, err := dataprocessing.ValidateHeader(src.Name, table.Header)
//	if err != nil {
//	    table.Close()
//	    return err
//	}
//	class := dataprocessing.ClassifyFilename(src.Name)
//	ex, _ := dataprocessing.NewExtractor(table, layout, class.Period, dataprocessing.DateFieldEndTime)
//	agg := dataprocessing.NewAggregator(dir)
//	for rec, err := range ex.Records() {
//	    if err != nil {
//	        continue
//	    }
//	    agg.Add(rec)
//	}
//
// Counts and dates that received no contribution stay unset (zero counts,
// nil dates) so the report layer can render them blank.
package dataprocessing
