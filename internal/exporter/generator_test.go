package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveytracker/internal/dataprocessing"
)

func generatorOptions() GeneratorOptions {
	return GeneratorOptions{
		Files:     1,
		Rows:      40,
		Seed:      42,
		Teachers:  []string{"101", "102"},
		Days:      10,
		Now:       time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		OtherRate: 0.25,
	}
}

func TestGenerator_Generate(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewGenerator(NewCSVWriter(dir, nil), generatorOptions()).Generate()
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"teachers.csv", "pre_survey_1.csv", "post_survey_1.csv"}, names)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	teachers, err := dataprocessing.LoadDirectory(f, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, teachers.Len())
}

func TestGenerator_OutputIsAValidExport(t *testing.T) {
	dir := t.TempDir()
	path, err := NewGenerator(NewCSVWriter(dir, nil), generatorOptions()).GenerateSurveyFile("pre_check.csv")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	table, err := dataprocessing.ReadTable(dataprocessing.SourceFile{Name: "pre_check.csv", Content: content})
	require.NoError(t, err)
	layout, err := dataprocessing.ValidateHeader("pre_check", table.Header)
	require.NoError(t, err)
	assert.Equal(t, GeneratedVariables, layout.Variables)

	ex, err := dataprocessing.NewExtractor(table, layout, dataprocessing.PeriodPre, dataprocessing.DateFieldEndTime)
	require.NoError(t, err)

	earliest := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	rows := 0
	for rec, err := range ex.Records() {
		require.NoError(t, err)
		rows++
		assert.Len(t, rec.TeacherID, 3)
		require.True(t, rec.HasDate)
		assert.False(t, rec.ResponseDate.Before(earliest), rec.ResponseDate)
		assert.False(t, rec.ResponseDate.After(latest), rec.ResponseDate)
	}
	assert.Equal(t, 40, rows)
}

func TestGenerator_Deterministic(t *testing.T) {
	read := func() string {
		dir := t.TempDir()
		path, err := NewGenerator(NewCSVWriter(dir, nil), generatorOptions()).GenerateSurveyFile("pre.csv")
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}

	first := read()
	assert.Equal(t, first, read())
	assert.Equal(t, 41, strings.Count(first, "\n"))
}
