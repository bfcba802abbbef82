package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTemplate(t *testing.T) {
	tests := []struct {
		name       string
		template   string
		value      string
		wantScore  float64
		wantParams map[string]string
	}{
		{
			name:      "exact match",
			template:  "/castles",
			value:     "/castles",
			wantScore: ScoreExact,
		},
		{
			name:       "single parameter",
			template:   "/castles/{id}",
			value:      "/castles/123",
			wantScore:  ScoreTemplate,
			wantParams: map[string]string{"id": "123"},
		},
		{
			name:       "multiple parameters",
			template:   "/castles/{castleId}/rooms/{roomId}",
			value:      "/castles/7/rooms/42",
			wantScore:  ScoreTemplate,
			wantParams: map[string]string{"castleId": "7", "roomId": "42"},
		},
		{
			name:      "segment count mismatch",
			template:  "/castles/{id}",
			value:     "/castles",
			wantScore: ScoreNone,
		},
		{
			name:      "literal mismatch",
			template:  "/castles/{id}",
			value:     "/knights/123",
			wantScore: ScoreNone,
		},
		{
			name:      "parameter never spans segments",
			template:  "/castles/{id}",
			value:     "/castles/1/rooms",
			wantScore: ScoreNone,
		},
		{
			name:      "no params and not equal",
			template:  "/castles",
			value:     "/castles/1",
			wantScore: ScoreNone,
		},
		{
			name:       "trailing slash tolerated",
			template:   "/castles/{id}",
			value:      "/castles/9/",
			wantScore:  ScoreTemplate,
			wantParams: map[string]string{"id": "9"},
		},
		{
			name:       "channel style template",
			template:   "castles/{id}/events",
			value:      "castles/3/events",
			wantScore:  ScoreTemplate,
			wantParams: map[string]string{"id": "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchTemplate(tt.template, tt.value)
			assert.Equal(t, tt.wantScore, got.Score)
			if tt.wantParams != nil {
				assert.Equal(t, tt.wantParams, got.Params)
			}
		})
	}
}

func TestHasParams(t *testing.T) {
	assert.True(t, HasParams("/castles/{id}"))
	assert.False(t, HasParams("/castles"))
	assert.False(t, HasParams("/castles/{}"))
}
