package models

// WorkTypeWeight is the contribution of one work type to the overall average.
type WorkTypeWeight struct {
	Type   WorkType `json:"type" yaml:"type" validate:"required"`
	Weight int      `json:"weight" yaml:"weight" validate:"gte=0,lte=10"`
}

// WeightConfig is an ordered list of work type weights. Entries with a weight
// of zero or less are treated as not configured.
type WeightConfig []WorkTypeWeight

// Active returns the entries with a positive weight, preserving order.
func (c WeightConfig) Active() []WorkTypeWeight {
	active := make([]WorkTypeWeight, 0, len(c))
	for _, w := range c {
		if w.Weight <= 0 {
			continue
		}
		active = append(active, w)
	}
	return active
}

// Total sums the positive weights.
func (c WeightConfig) Total() int {
	total := 0
	for _, w := range c.Active() {
		total += w.Weight
	}
	return total
}
