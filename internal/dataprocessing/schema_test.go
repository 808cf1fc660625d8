package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "surveytracker/internal/errors"
)

func header(variables ...string) []string {
	return append(StandardColumns(), variables...)
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name          string
		header        []string
		wantVariables []string
		wantErr       string
	}{
		{
			name:          "standard columns with variables",
			header:        header("Q1", "Q2", "Comment"),
			wantVariables: []string{"Q1", "Q2", "Comment"},
		},
		{
			name:          "no variables",
			header:        header(),
			wantVariables: []string{},
		},
		{
			name:          "padded cells and byte order mark",
			header:        append([]string{"\ufeff Test ID "}, header(" Q1 ")[1:]...),
			wantVariables: []string{"Q1"},
		},
		{
			name:    "missing student id",
			header:  append(append([]string{}, StandardColumns()[:3]...), StandardColumns()[4:]...),
			wantErr: `missing standard column "Student ID"`,
		},
		{
			name: "reordered columns",
			header: func() []string {
				h := header("Q1")
				h[6], h[7] = h[7], h[6]
				return h
			}(),
			wantErr: `expected standard column "Start Time" at position 7, found "End Time"`,
		},
		{
			name:    "truncated header",
			header:  StandardColumns()[:10],
			wantErr: `missing standard column "Age" at position 11`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := ValidateHeader("export.csv", tt.header)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(StandardColumns()), layout.CutIndex)
			assert.Equal(t, tt.wantVariables, layout.Variables)
			assert.Equal(t, 3, layout.Index(ColumnStudentID))
			assert.Equal(t, 7, layout.Index(ColumnEndTime))
			assert.Equal(t, -1, layout.Index("Q1"))
		})
	}
}

func TestStandardColumns_IsCopy(t *testing.T) {
	cols := StandardColumns()
	cols[0] = "changed"
	assert.Equal(t, "Test ID", StandardColumns()[0])
	assert.Len(t, StandardColumns(), 16)
}
