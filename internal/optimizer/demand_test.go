package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func predictions(values ...float64) []PredictionRecord {
	out := make([]PredictionRecord, len(values))
	for i, v := range values {
		out[i] = PredictionRecord{PredictedValue: v}
	}
	return out
}

func TestEstimateDemandParameters(t *testing.T) {
	tests := []struct {
		name       string
		input      []PredictionRecord
		wantOK     bool
		wantLambda float64
		wantSigma  float64
	}{
		{name: "empty", input: nil, wantOK: false},
		{name: "empty slice", input: []PredictionRecord{}, wantOK: false},
		{name: "all zero floors both", input: predictions(0, 0), wantOK: true, wantLambda: 1.0, wantSigma: 1.0},
		{name: "population deviation", input: predictions(2, 4, 6), wantOK: true, wantLambda: 4.0, wantSigma: 1.632993},
		{name: "single sample floors sigma", input: predictions(7.5), wantOK: true, wantLambda: 7.5, wantSigma: 1.0},
		{name: "constant series floors sigma only", input: predictions(3, 3, 3), wantOK: true, wantLambda: 3.0, wantSigma: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EstimateDemandParameters(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, DemandParameters{}, got)
				return
			}
			assert.InDelta(t, tt.wantLambda, got.Lambda, 1e-6)
			assert.InDelta(t, tt.wantSigma, got.Sigma, 1e-6)
		})
	}
}
