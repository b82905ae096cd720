package anonymize

import (
	"mysql-db-export/internal/logging"
)

// Batch is a page of rows with their ordered column names.
type Batch struct {
	Columns []string
	Rows    [][]interface{}
}

// Engine applies anonymization rules to row batches.
type Engine struct {
	registry *Registry
	logger   *logging.Logger
}

// NewEngine creates an engine that dispatches to strategies in registry
func NewEngine(registry *Registry, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Engine{registry: registry, logger: logger}
}

// Registry returns the engine's strategy registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

// RequiresAnonymization reports whether table rows must be rewritten.
func (e *Engine) RequiresAnonymization(table string, cfg *Config) bool {
	return cfg.HasRulesForTable(table)
}

// Anonymize returns a copy of batch with every ruled column rewritten.
// Any strategy failure aborts the whole batch; partially anonymized rows are
// never returned.
func (e *Engine) Anonymize(table string, batch Batch, cfg *Config) (Batch, error) {
	if !e.RequiresAnonymization(table, cfg) || len(batch.Rows) == 0 {
		return batch, nil
	}

	type plan struct {
		index    int
		rule     Rule
		strategy Strategy
	}
	var plans []plan
	for i, column := range batch.Columns {
		rule, ok := cfg.RuleForColumn(table, column)
		if !ok {
			continue
		}
		strategy, err := e.registry.Get(rule.Strategy)
		if err != nil {
			return Batch{}, annotate(err, table, column)
		}
		plans = append(plans, plan{index: i, rule: rule, strategy: strategy})
	}
	if len(plans) == 0 {
		return batch, nil
	}

	out := Batch{Columns: batch.Columns, Rows: make([][]interface{}, len(batch.Rows))}
	preserved := 0
	for r, row := range batch.Rows {
		copied := make([]interface{}, len(row))
		copy(copied, row)
		out.Rows[r] = copied

		if cfg.ShouldPreserveRow(table, batch.Columns, row) {
			preserved++
			continue
		}

		for _, p := range plans {
			if p.index >= len(copied) {
				continue
			}
			value, err := p.strategy.Apply(copied[p.index], p.rule)
			if err != nil {
				return Batch{}, annotate(err, table, batch.Columns[p.index])
			}
			copied[p.index] = value
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"table":     table,
		"rows":      len(batch.Rows),
		"columns":   len(plans),
		"preserved": preserved,
	}).Debug("Anonymized batch")

	return out, nil
}

// GenerateInsertStatement anonymizes batch and renders it as one INSERT.
func (e *Engine) GenerateInsertStatement(table string, batch Batch, cfg *Config) (string, error) {
	if len(batch.Rows) == 0 {
		return "", nil
	}
	anonymized, err := e.Anonymize(table, batch, cfg)
	if err != nil {
		return "", err
	}
	return GenerateInsertStatement(table, anonymized), nil
}
