package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   []int
	}{
		{
			name:   "three bands",
			scores: []float64{12.0, 6.0, 1.0},
			want:   []int{100, 70, 15},
		},
		{
			name:   "single medium score",
			scores: []float64{3.0},
			want:   []int{50},
		},
		{
			name:   "top score capped at 100",
			scores: []float64{50.0},
			want:   []int{100},
		},
		{
			name:   "zero scores floor at 10",
			scores: []float64{0.0, 0.0},
			want:   []int{10, 10},
		},
		{
			name:   "empty",
			scores: nil,
			want:   []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreConfidence(tt.scores)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreConfidenceBounds(t *testing.T) {
	scores := []float64{25.0, 11.0, 9.9, 4.9, 1.9, 0.5, 0.0}

	got := ScoreConfidence(scores)

	for i, c := range got {
		assert.GreaterOrEqual(t, c, 10, "rank %d", i)
		assert.LessOrEqual(t, c, 100, "rank %d", i)
	}
}

func TestScoreConfidenceNonIncreasing(t *testing.T) {
	scores := []float64{14.2, 13.8, 10.1, 7.5, 2.2}

	got := ScoreConfidence(scores)

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i], got[i-1],
			"confidence rose between ranks %d and %d: %v", i-1, i, got)
	}
}
