package dataprocessing

import (
	"strings"
)

// Period tags a source file as pre-assessment, post-assessment or neither.
type Period string

const (
	PeriodPre  Period = "pre"
	PeriodPost Period = "post"
	PeriodNone Period = "none"
)

// Label is the display form used in the Time column; none renders blank.
func (p Period) Label() string {
	switch p {
	case PeriodPre:
		return "Pre"
	case PeriodPost:
		return "Post"
	}
	return ""
}

// Classification is the result of classifying a filename.
type Classification struct {
	Period    Period
	Ambiguous bool
}

// ClassifyFilename maps a filename to a period by case-insensitive substring
// match on its base name. When both markers occur the earliest one wins and
// the result is flagged ambiguous.
func ClassifyFilename(name string) Classification {
	base := strings.ToLower(BaseName(name))

	pre := strings.Index(base, "pre")
	post := strings.Index(base, "post")

	switch {
	case pre < 0 && post < 0:
		return Classification{Period: PeriodNone}
	case post < 0:
		return Classification{Period: PeriodPre}
	case pre < 0:
		return Classification{Period: PeriodPost}
	case pre < post:
		return Classification{Period: PeriodPre, Ambiguous: true}
	default:
		return Classification{Period: PeriodPost, Ambiguous: true}
	}
}
