package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// SurveyStandardColumns mirrors the fixed export header used by fixtures.
var SurveyStandardColumns = []string{
	"Test ID", "Test Label", "Unique ID", "Student ID", "Status", "Progress",
	"Start Time", "End Time", "Overall Score", "Attempted Score", "Age",
	"Gender", "Grade", "Language", "Ethnicity", "State",
}

// SurveyCSV builds survey export content for tests.
type SurveyCSV struct {
	header []string
	rows   [][]string
}

// NewSurveyCSV starts an export whose unique test variables are variables.
func NewSurveyCSV(variables ...string) *SurveyCSV {
	header := append(append([]string{}, SurveyStandardColumns...), variables...)
	return &SurveyCSV{header: header}
}

// Row appends a row whose start and end time are both when.
func (s *SurveyCSV) Row(studentID, when string, answers ...string) *SurveyCSV {
	return s.RowTimes(studentID, when, when, answers...)
}

// RowTimes appends a row with distinct start and end times. Answers fill the
// unique test variable columns in order.
func (s *SurveyCSV) RowTimes(studentID, start, end string, answers ...string) *SurveyCSV {
	row := make([]string, len(s.header))
	n := len(s.rows) + 1
	row[0] = "T1"
	row[1] = "Fixture Assessment"
	row[2] = fmt.Sprintf("U%04d", n)
	row[3] = studentID
	row[4] = "Completed"
	row[5] = "100"
	row[6] = start
	row[7] = end
	copy(row[len(SurveyStandardColumns):], answers)
	s.rows = append(s.rows, row)
	return s
}

// Header returns the export header.
func (s *SurveyCSV) Header() []string {
	return append([]string{}, s.header...)
}

// Rows returns the data rows.
func (s *SurveyCSV) Rows() [][]string {
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string{}, r...)
	}
	return out
}

// Bytes renders the export as CSV.
func (s *SurveyCSV) Bytes() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(s.header)
	_ = w.WriteAll(s.rows)
	return buf.Bytes()
}

// TeachersCSV renders a teacher configuration from id/name pairs.
func TeachersCSV(pairs ...string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"teacher_id", "teacher_name"})
	for i := 0; i+1 < len(pairs); i += 2 {
		_ = w.Write([]string{pairs[i], pairs[i+1]})
	}
	w.Flush()
	return buf.Bytes()
}
