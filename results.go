package salesforecast

// Results are the held out test rows in temporal order along with their predictions
type Results struct {
	Labels    []string  `json:"labels"`
	Actual    []float64 `json:"actual"`
	Predicted []float64 `json:"predicted"`
}
