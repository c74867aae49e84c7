// Package telemetry talks to the external telemetry service (the Flask
// backend that computes solar/load figures) and aggregates its reads into
// the dashboard view model. The service is a flaky remote dependency by
// design: every read is bounded by a timeout and degrades to empty data on
// failure instead of failing the page.
package telemetry

// TodayStatus is the point-in-time production summary from /today_status.
type TodayStatus struct {
	Status        string  `json:"status"`
	Date          string  `json:"date"`
	TotalEnergy   float64 `json:"total_energy"`
	PeakPower     float64 `json:"peak_power"`
	AvgEfficiency float64 `json:"avg_efficiency"`
}

// Reading is a single dated entry in the /history series.
type Reading struct {
	Date  string  `json:"date"`
	Solar float64 `json:"solar"`
	Load  float64 `json:"load"`
}

// SolarStatus is the billing breakdown from /solar_status.
type SolarStatus struct {
	Category            string  `json:"category"`
	SolarGeneration     float64 `json:"solar_generation"`
	GridImport          float64 `json:"grid_import"`
	GridExport          float64 `json:"grid_export"`
	NetGridConsumption  float64 `json:"net_grid_consumption"`
	TotalConsumption    float64 `json:"total_consumption"`
	GridTariff          float64 `json:"grid_tariff"`
	SolarTariff         float64 `json:"solar_tariff"`
	NormalBill          float64 `json:"normal_bill"`
	SolarBill           float64 `json:"solar_bill"`
	SolarGenerationCost float64 `json:"solar_generation_cost"`
	Savings             float64 `json:"savings"`
	PeakVoltage         float64 `json:"peak_voltage"`
	PeakCurrent         float64 `json:"peak_current"`
	PeakPower           float64 `json:"peak_power"`
}

// ForecastPoint is one predicted day from /predict. The field names follow
// the telemetry service's Prophet output.
type ForecastPoint struct {
	Date  string  `json:"ds"`
	Solar float64 `json:"yhat_solar"`
	Load  float64 `json:"yhat_load"`
}

// Snapshot is the aggregation result the dashboard is rendered from. The
// two parts are independent: a failed read leaves its part at the empty
// value (nil today status, empty history) without affecting the other.
type Snapshot struct {
	TodayData   *TodayStatus `json:"today_data"`
	HistoryData []Reading    `json:"history_data"`
}

// Profile is the authenticated user's public profile as embedded in the
// dashboard view model. Only rendering-safe fields appear here.
type Profile struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	AvgPower  *float64 `json:"avg_power"`
}

// DashboardData is the data object handed to the rendering layer (the
// client-side chart code consumes it as JSON). Forecast is always present
// so the shape is stable for future extension; it may be empty.
type DashboardData struct {
	User     Profile         `json:"user"`
	Today    *TodayStatus    `json:"today_data"`
	History  []Reading       `json:"history_data"`
	Forecast []ForecastPoint `json:"forecast"`
}
