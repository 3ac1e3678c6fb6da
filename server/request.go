package server

import "sort"

// PredictRequest is the body of a predict call. The six pointer fields are required, every
// other field defaults to 0 when omitted.
type PredictRequest struct {
	Price      *float64 `json:"price" binding:"required"`
	Discount   *float64 `json:"discount" binding:"required"`
	QtyLast7d  *float64 `json:"qty_last_7d" binding:"required"`
	QtyLast30d *float64 `json:"qty_last_30d" binding:"required"`
	Dow        *int     `json:"dow" binding:"required"`
	Month      *int     `json:"month" binding:"required"`

	SalesLag1         float64 `json:"sales_lag_1"`
	SalesLag7         float64 `json:"sales_lag_7"`
	SalesLag14        float64 `json:"sales_lag_14"`
	SalesLag30        float64 `json:"sales_lag_30"`
	SalesRollMean7    float64 `json:"sales_roll_mean_7"`
	SalesRollMean30   float64 `json:"sales_roll_mean_30"`
	SalesRollStd7     float64 `json:"sales_roll_std_7"`
	SalesRollStd30    float64 `json:"sales_roll_std_30"`
	DayOfWeek         int     `json:"day_of_week"`
	WeekOfYear        int     `json:"week_of_year"`
	Quarter           int     `json:"quarter"`
	IsHoliday         int     `json:"is_holiday"`
	IsSpecialOccasion int     `json:"is_special_occasion"`
	IsPeakSeason      int     `json:"is_peak_season"`
	IsOffSeason       int     `json:"is_off_season"`
}

func deref[T int | float64](v *T) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}

// Fields maps every request field to its json name
func (r PredictRequest) Fields() map[string]float64 {
	return map[string]float64{
		"price":        deref(r.Price),
		"discount":     deref(r.Discount),
		"qty_last_7d":  deref(r.QtyLast7d),
		"qty_last_30d": deref(r.QtyLast30d),
		"dow":          deref(r.Dow),
		"month":        deref(r.Month),

		"sales_lag_1":         r.SalesLag1,
		"sales_lag_7":         r.SalesLag7,
		"sales_lag_14":        r.SalesLag14,
		"sales_lag_30":        r.SalesLag30,
		"sales_roll_mean_7":   r.SalesRollMean7,
		"sales_roll_mean_30":  r.SalesRollMean30,
		"sales_roll_std_7":    r.SalesRollStd7,
		"sales_roll_std_30":   r.SalesRollStd30,
		"day_of_week":         float64(r.DayOfWeek),
		"week_of_year":        float64(r.WeekOfYear),
		"quarter":             float64(r.Quarter),
		"is_holiday":          float64(r.IsHoliday),
		"is_special_occasion": float64(r.IsSpecialOccasion),
		"is_peak_season":      float64(r.IsPeakSeason),
		"is_off_season":       float64(r.IsOffSeason),
	}
}

// FieldNames lists every request field name, sorted
func FieldNames() []string {
	fields := PredictRequest{}.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
