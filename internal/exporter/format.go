package exporter

import (
	"fmt"
	"time"

	"surveytracker/internal/dataprocessing"
)

// countCell returns n, or nil when nothing contributed so the cell stays blank.
func countCell(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// dateCell returns the formatted date, or nil for an unset bound.
func dateCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dataprocessing.FormatDate(*t)
}

// cellText is the displayed text of a cell value, used for column widths.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
