package testutil

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.True(t, handler.ContainsAttr("code", int64(500)))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Warn("warn msg again")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Equal(t, 2, handler.CountAtLevel(slog.LevelWarn, "warn msg"))
		AssertNoErrors(t, handler)
	})

	t.Run("derived handlers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "report_service").WithGroup("file").Info("accepted", "name", "pre_data")

		records := handler.GetRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "report_service", records[0].Attrs["component"])
		assert.Equal(t, "pre_data", records[0].Attrs["file.name"])
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		assert.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestSurveyCSV(t *testing.T) {
	content := NewSurveyCSV("Q1", "Q2").
		Row("100abc", "2024-01-01", "yes").
		Row("101xyz", "2024-01-02").
		Bytes()

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Student ID", records[0][3])
	assert.Equal(t, []string{"Q1", "Q2"}, records[0][len(SurveyStandardColumns):])
	assert.Equal(t, "100abc", records[1][3])
	assert.Equal(t, "2024-01-01", records[1][7])
	assert.Equal(t, "yes", records[1][16])
	assert.Empty(t, records[2][16])
}

func TestTeachersCSV(t *testing.T) {
	assert.Equal(t, "teacher_id,teacher_name\n100,Ada\n101,Grace\n", string(TeachersCSV("100", "Ada", "101", "Grace")))
}
