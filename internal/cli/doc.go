// Package cli implements the surveytracker command tree.
//
//	surveytracker report  --in DIR --teachers FILE --out DIR --date-field EndTime|StartTime
//	surveytracker fetch   --urls FILE [--username U --password P --login-url URL] [--out DIR] [--report]
//	surveytracker serve   [--port N]
//	surveytracker gendata [--out DIR --files N --rows N --seed S]
//	surveytracker version
//
// Directory flags default to the layout next to the executable, see
// config.NewPaths.
package cli
