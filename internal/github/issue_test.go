package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIssueList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"single", "12", []int{12}, false},
		{"multiple", "12,13,40", []int{12, 13, 40}, false},
		{"whitespace tolerated", " 12 , 13 ", []int{12, 13}, false},
		{"empty", "", nil, true},
		{"blank", "   ", nil, true},
		{"non-numeric", "12,abc", nil, true},
		{"zero", "0", nil, true},
		{"negative", "-4", nil, true},
		{"trailing comma", "12,", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIssueList(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchIssueRejectsInvalidNumber(t *testing.T) {
	_, err := FetchIssue(0)
	assert.Error(t, err)
	_, err = FetchIssue(-1)
	assert.Error(t, err)
}

func TestCloseIssueRejectsInvalidNumber(t *testing.T) {
	assert.Error(t, CloseIssue(0, ""))
}

func TestLabelIssueValidation(t *testing.T) {
	assert.Error(t, LabelIssue(0, "blocked"))
	assert.Error(t, LabelIssue(12, ""))
}
