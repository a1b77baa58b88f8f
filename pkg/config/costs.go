package config

// CostTables holds the USD-per-token rates used for cost accounting.
// PerMessage prices a single completion by model name; StatsRate is the flat
// average rate applied when aggregating a user's token usage.
type CostTables struct {
	PerMessage         map[string]float64
	PerMessageFallback float64
	StatsRate          float64
}

// DefaultCostTables returns the built-in rate tables
func DefaultCostTables() CostTables {
	return CostTables{
		PerMessage: map[string]float64{
			"gpt-4":         0.00003,
			"gpt-4-turbo":   0.00001,
			"gpt-4o":        0.000005,
			"gpt-4o-mini":   0.00000015,
			"gpt-3.5-turbo": 0.000002,
		},
		PerMessageFallback: 0.000002,
		StatsRate:          0.00002,
	}
}

// MessageRate returns the per-token rate of a model, falling back for unknown names
func (c CostTables) MessageRate(model string) float64 {
	if rate, ok := c.PerMessage[model]; ok {
		return rate
	}
	return c.PerMessageFallback
}

// Priced reports whether model has its own per-message rate
func (c CostTables) Priced(model string) bool {
	_, ok := c.PerMessage[model]
	return ok
}
