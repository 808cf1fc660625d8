package dataprocessing

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"time"
)

// PeriodStats accumulates valid responses for one period. First and Last are
// nil until a response contributes; zero Responses renders blank.
type PeriodStats struct {
	Responses int        `json:"responses"`
	First     *time.Time `json:"first,omitempty"`
	Last      *time.Time `json:"last,omitempty"`
}

func (p *PeriodStats) add(date time.Time) {
	p.Responses++
	if p.First == nil || date.Before(*p.First) {
		d := date
		p.First = &d
	}
	if p.Last == nil || date.After(*p.Last) {
		d := date
		p.Last = &d
	}
}

// TeacherSummary is one Teacher Summary row.
type TeacherSummary struct {
	Identity string      `json:"teacher_id"`
	Pre      PeriodStats `json:"pre"`
	Post     PeriodStats `json:"post"`
}

// SurveyKey identifies a Survey Report row.
type SurveyKey struct {
	Identity string
	Filename string
}

// SurveyGroup holds the per-date counts of one (identity, file) pair.
type SurveyGroup struct {
	Identity string
	Filename string
	Counts   map[time.Time]int
	Periods  map[Period]int
}

// DominantPeriod returns the period carried by most of the group's responses.
// A pre/post tie yields PeriodNone.
func (g *SurveyGroup) DominantPeriod() Period {
	pre, post := g.Periods[PeriodPre], g.Periods[PeriodPost]
	switch {
	case pre > post:
		return PeriodPre
	case post > pre:
		return PeriodPost
	}
	return PeriodNone
}

// Total returns the group's response count across all dates.
func (g *SurveyGroup) Total() int {
	total := 0
	for _, n := range g.Counts {
		total += n
	}
	return total
}

// Totals counts the records an aggregator has seen.
type Totals struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// AggregateState is the result of folding records. Survey holds valid
// response counts per (identity, file, date); Summary holds per-identity
// pre/post statistics.
type AggregateState struct {
	Survey  map[SurveyKey]*SurveyGroup
	Summary map[string]*TeacherSummary
	Totals  Totals
}

func newAggregateState() *AggregateState {
	return &AggregateState{
		Survey:  make(map[SurveyKey]*SurveyGroup),
		Summary: make(map[string]*TeacherSummary),
	}
}

// CountsByTeacher collapses the survey table to identity -> date -> count.
func (s *AggregateState) CountsByTeacher() map[string]map[time.Time]int {
	out := make(map[string]map[time.Time]int)
	for key, g := range s.Survey {
		byDate, ok := out[key.Identity]
		if !ok {
			byDate = make(map[time.Time]int)
			out[key.Identity] = byDate
		}
		for d, n := range g.Counts {
			byDate[d] += n
		}
	}
	return out
}

// Dates returns every distinct response date, ascending.
func (s *AggregateState) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	for _, g := range s.Survey {
		for d := range g.Counts {
			seen[d] = struct{}{}
		}
	}
	dates := slices.Collect(maps.Keys(seen))
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// Groups returns the survey rows in display order: directory order of
// identity (Other last), then filename.
func (s *AggregateState) Groups(dir *TeacherDirectory) []*SurveyGroup {
	groups := slices.Collect(maps.Values(s.Survey))
	slices.SortFunc(groups, func(a, b *SurveyGroup) int {
		if ra, rb := dir.rank(a.Identity), dir.rank(b.Identity); ra != rb {
			return ra - rb
		}
		if c := strings.Compare(a.Identity, b.Identity); c != 0 {
			return c
		}
		return strings.Compare(a.Filename, b.Filename)
	})
	return groups
}

// SummaryRows returns every configured teacher in directory order, followed
// by Other when it received data.
func (s *AggregateState) SummaryRows(dir *TeacherDirectory) []*TeacherSummary {
	rows := make([]*TeacherSummary, 0, dir.Len()+1)
	for _, e := range dir.Entries() {
		if row, ok := s.Summary[e.ID]; ok {
			rows = append(rows, row)
		} else {
			rows = append(rows, &TeacherSummary{Identity: e.ID})
		}
	}
	if other, ok := s.Summary[OtherTeacherID]; ok {
		rows = append(rows, other)
	}
	return rows
}

// Aggregator folds ResponseRecords into an AggregateState.
type Aggregator struct {
	dir   *TeacherDirectory
	state *AggregateState
}

// NewAggregator returns an aggregator whose summary already lists every
// configured teacher.
func NewAggregator(dir *TeacherDirectory) *Aggregator {
	if dir == nil {
		dir = NewTeacherDirectory()
	}
	state := newAggregateState()
	for _, e := range dir.Entries() {
		state.Summary[e.ID] = &TeacherSummary{Identity: e.ID}
	}
	return &Aggregator{dir: dir, state: state}
}

// Add folds one record. Invalid records and records without a date only
// count toward Totals.
func (a *Aggregator) Add(rec ResponseRecord) {
	if !rec.IsValid || !rec.HasDate {
		a.state.Totals.Invalid++
		return
	}
	a.state.Totals.Valid++

	identity := a.dir.Classify(rec.TeacherID)

	key := SurveyKey{Identity: identity, Filename: rec.SourceFilename}
	group, ok := a.state.Survey[key]
	if !ok {
		group = &SurveyGroup{
			Identity: identity,
			Filename: rec.SourceFilename,
			Counts:   make(map[time.Time]int),
			Periods:  make(map[Period]int),
		}
		a.state.Survey[key] = group
	}
	group.Counts[rec.ResponseDate]++
	group.Periods[rec.Period]++

	// Other gets a summary row once any valid record maps to it; only
	// pre and post records touch the statistics.
	summary, ok := a.state.Summary[identity]
	if !ok {
		summary = &TeacherSummary{Identity: identity}
		a.state.Summary[identity] = summary
	}
	switch rec.Period {
	case PeriodPre:
		summary.Pre.add(rec.ResponseDate)
	case PeriodPost:
		summary.Post.add(rec.ResponseDate)
	}
}

// State returns the accumulated state.
func (a *Aggregator) State() *AggregateState {
	return a.state
}

// Directory returns the directory records are classified against.
func (a *Aggregator) Directory() *TeacherDirectory {
	return a.dir
}

// Fold aggregates records into a fresh state.
func Fold(records iter.Seq[ResponseRecord], dir *TeacherDirectory) *AggregateState {
	agg := NewAggregator(dir)
	for rec := range records {
		agg.Add(rec)
	}
	return agg.State()
}
