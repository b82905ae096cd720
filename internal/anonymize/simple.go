package anonymize

// NullStrategy replaces every value with NULL.
type NullStrategy struct{}

func (NullStrategy) Name() string { return StrategyNull }

func (NullStrategy) Supports(rule Rule) bool { return rule.Strategy == StrategyNull }

func (NullStrategy) Apply(interface{}, Rule) (interface{}, error) {
	return nil, nil
}

// FixedStrategy replaces every value with a configured literal.
type FixedStrategy struct{}

func (FixedStrategy) Name() string { return StrategyFixed }

func (FixedStrategy) Supports(rule Rule) bool { return rule.Strategy == StrategyFixed }

func (FixedStrategy) Apply(value interface{}, rule Rule) (interface{}, error) {
	if value == nil && rule.PreserveNull {
		return nil, nil
	}
	if rule.Fixed == nil || rule.Fixed.Value == nil {
		return "", nil
	}
	return rule.Fixed.Value, nil
}
