package cost

// Rates is the per-million-token price for a model, in USD.
type Rates struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// pricingTable is a static model-name-prefix to Rates lookup. Entries
// are matched by longest prefix, so a specific snapshot name (e.g.
// "gpt-4o-2024-08-06") falls back to its family's rate ("gpt-4o")
// without needing its own entry.
var pricingTable = map[string]Rates{
	"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4o":            {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4-turbo":       {InputPerMillion: 10.00, OutputPerMillion: 30.00},
	"gpt-4":             {InputPerMillion: 30.00, OutputPerMillion: 60.00},
	"gpt-3.5-turbo":     {InputPerMillion: 0.50, OutputPerMillion: 1.50},
	"claude-3-5-sonnet": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-3-opus":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-3-haiku":    {InputPerMillion: 0.25, OutputPerMillion: 1.25},
	"claude-3-sonnet":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"gemini-1.5-pro":    {InputPerMillion: 1.25, OutputPerMillion: 5.00},
	"gemini-1.5-flash":  {InputPerMillion: 0.075, OutputPerMillion: 0.30},
	"gemini-2.0-flash":  {InputPerMillion: 0.10, OutputPerMillion: 0.40},
}

// LookupRate finds the Rates entry whose key is the longest prefix of
// model. Returns false if no entry's key prefixes model at all.
func LookupRate(model string) (Rates, bool) {
	bestKey := ""
	var best Rates
	found := false

	for key, rates := range pricingTable {
		if len(key) <= len(bestKey) {
			continue
		}
		if hasPrefix(model, key) {
			bestKey = key
			best = rates
			found = true
		}
	}

	return best, found
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
