package scenario

// File is an offline forecast input. Quantities are kept as written so they
// parse exactly into decimals.
type File struct {
	Name              string     `yaml:"name" json:"name"`
	ProductID         string     `yaml:"product_id" json:"product_id"`
	Start             string     `yaml:"start" json:"start"`                 // YYYY-MM-DD
	End               string     `yaml:"end" json:"end"`                     // optional, exclusive with forecast_days
	ForecastDays      int        `yaml:"forecast_days" json:"forecast_days"` // simulated days after start
	Capacity          int64      `yaml:"capacity" json:"capacity"`
	LifetimeDays      int        `yaml:"lifetime_days" json:"lifetime_days"`
	RandomRangeFactor string     `yaml:"random_range_factor" json:"random_range_factor"`
	Runs              int        `yaml:"runs" json:"runs"`
	Batches           []Batch    `yaml:"batches" json:"batches"`
	History           []Movement `yaml:"history" json:"history"`
	Daily             []Daily    `yaml:"daily" json:"daily"`
}

// Batch is stock on hand at start
type Batch struct {
	Quantity  string `yaml:"quantity" json:"quantity"`
	EntryDate string `yaml:"entry_date" json:"entry_date"`
	Deadline  string `yaml:"deadline" json:"deadline"`
}

// Movement is one averaged history row keyed by ISO week and weekday (Sunday = 0)
type Movement struct {
	Week       int    `yaml:"week" json:"week"`
	DayOfWeek  int    `yaml:"day_of_week" json:"day_of_week"`
	Entry      string `yaml:"entry" json:"entry"`
	Withdrawal string `yaml:"withdrawal" json:"withdrawal"`
}

// Daily repeats the same movement for every date in [From, To].
// It expands to Movement rows after the explicit history.
type Daily struct {
	From       string `yaml:"from" json:"from"`
	To         string `yaml:"to" json:"to"`
	Entry      string `yaml:"entry" json:"entry"`
	Withdrawal string `yaml:"withdrawal" json:"withdrawal"`
}
