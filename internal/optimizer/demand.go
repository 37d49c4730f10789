package optimizer

import "gonum.org/v1/gonum/stat"

// PredictionRecord is a single point forecast for a SKU, in units per period.
type PredictionRecord struct {
	PredictedValue float64 `json:"predicted_value"`
}

// DemandParameters is the Normal demand distribution fed to the inventory optimizer.
type DemandParameters struct {
	Lambda float64 `json:"lambda"`
	Sigma  float64 `json:"sigma"`
}

// EstimateDemandParameters returns the arithmetic mean and population standard
// deviation of the predicted values.
//
// ok is false when predictions is empty: no distribution is known yet and the
// caller should run a fresh inference before optimizing. A computed mean or
// deviation of exactly zero is replaced with 1.0 so the inventory cost function
// stays defined. A single prediction therefore always yields Sigma == 1.0; one
// sample carries no spread information.
func EstimateDemandParameters(predictions []PredictionRecord) (params DemandParameters, ok bool) {
	if len(predictions) == 0 {
		return DemandParameters{}, false
	}

	values := make([]float64, len(predictions))
	for i, p := range predictions {
		values[i] = p.PredictedValue
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		mean = 1.0
	}
	if std == 0 {
		std = 1.0
	}

	return DemandParameters{Lambda: mean, Sigma: std}, true
}
