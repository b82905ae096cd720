package anonymize

import (
	"fmt"
	"sort"
	"strings"

	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/wildcard"
)

// PreserveRule keeps rows whose email domain is listed untouched, e.g. staff accounts.
type PreserveRule struct {
	Column  string   `mapstructure:"column" yaml:"column"`
	Domains []string `mapstructure:"domains" yaml:"domains"`
}

// Config holds the resolved anonymization rules for one export.
type Config struct {
	tables       map[string]map[string]Rule
	global       map[string]Rule
	globalOrder  []string
	preserveRows map[string]PreserveRule
}

// RawRules is the configuration shape of table rules: table -> column -> flat rule map.
type RawRules map[string]map[string]map[string]interface{}

// NewConfig builds a Config from already parsed rules.
func NewConfig(tables map[string]map[string]Rule, global map[string]Rule, preserveRows map[string]PreserveRule) *Config {
	cfg := &Config{
		tables:       make(map[string]map[string]Rule, len(tables)),
		global:       make(map[string]Rule, len(global)),
		preserveRows: make(map[string]PreserveRule, len(preserveRows)),
	}
	for table, columns := range tables {
		cfg.tables[table] = make(map[string]Rule, len(columns))
		for column, rule := range columns {
			cfg.tables[table][column] = rule
		}
	}
	for pattern, rule := range global {
		cfg.global[pattern] = rule
		cfg.globalOrder = append(cfg.globalOrder, pattern)
	}
	sort.Strings(cfg.globalOrder)
	for table, rule := range preserveRows {
		if rule.Column == "" {
			rule.Column = "email"
		}
		cfg.preserveRows[table] = rule
	}
	return cfg
}

// LoadConfig parses profile table rules and global column rules. Every rule
// is validated here so that configuration mistakes surface before an export
// touches the database or the filesystem.
func LoadConfig(tableRules RawRules, globalRules map[string]map[string]interface{}, preserveRows map[string]PreserveRule) (*Config, error) {
	tables := make(map[string]map[string]Rule, len(tableRules))
	for table, columns := range tableRules {
		tables[table] = make(map[string]Rule, len(columns))
		for column, raw := range columns {
			rule, err := ParseRule(raw)
			if err != nil {
				return nil, annotate(err, table, column)
			}
			tables[table][column] = rule
		}
	}

	global := make(map[string]Rule, len(globalRules))
	for pattern, raw := range globalRules {
		rule, err := ParseRule(raw)
		if err != nil {
			return nil, annotate(err, "*", pattern)
		}
		global[pattern] = rule
	}

	return NewConfig(tables, global, preserveRows), nil
}

func annotate(err error, table, column string) error {
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.WithContext("table", table).WithContext("column", column)
	}
	return err
}

// HasRulesForTable reports whether rows of table must go through the rule
// engine. Global rules apply to every table.
func (c *Config) HasRulesForTable(table string) bool {
	if c == nil {
		return false
	}
	return len(c.tables[table]) > 0 || len(c.global) > 0
}

// RulesForTable returns the table-specific rules.
func (c *Config) RulesForTable(table string) map[string]Rule {
	if c == nil {
		return nil
	}
	return c.tables[table]
}

// GlobalRules returns the global column-pattern rules.
func (c *Config) GlobalRules() map[string]Rule {
	if c == nil {
		return nil
	}
	return c.global
}

// RuleForColumn resolves the rule for a column. Table-specific rules win over
// global patterns; global patterns are tried in sorted order and matched
// case-insensitively.
func (c *Config) RuleForColumn(table, column string) (Rule, bool) {
	if c == nil {
		return Rule{}, false
	}
	if rule, ok := c.tables[table][column]; ok {
		return rule, true
	}
	for _, pattern := range c.globalOrder {
		if wildcard.MatchesFold(column, []string{pattern}) {
			return c.global[pattern], true
		}
	}
	return Rule{}, false
}

// ShouldPreserveRow reports whether a row belongs to a preserved email domain.
func (c *Config) ShouldPreserveRow(table string, columns []string, row []interface{}) bool {
	if c == nil {
		return false
	}
	preserve, ok := c.preserveRows[table]
	if !ok || len(preserve.Domains) == 0 {
		return false
	}

	for i, column := range columns {
		if column != preserve.Column || i >= len(row) {
			continue
		}
		email := toString(row[i])
		at := strings.LastIndex(email, "@")
		if at < 0 {
			return false
		}
		domain := strings.ToLower(email[at+1:])
		for _, d := range preserve.Domains {
			if strings.ToLower(d) == domain {
				return true
			}
		}
		return false
	}
	return false
}

// TableNames returns the tables that carry table-specific rules, sorted.
func (c *Config) TableNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.tables))
	for table, columns := range c.tables {
		if len(columns) > 0 {
			names = append(names, table)
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks every rule against the registered strategy names and
// returns human-readable problems.
func (c *Config) Validate(strategies []string) []string {
	known := make(map[string]struct{}, len(strategies))
	for _, s := range strategies {
		known[s] = struct{}{}
	}

	var problems []string
	check := func(scope, column string, rule Rule) {
		if _, ok := known[rule.Strategy]; !ok {
			problems = append(problems, fmt.Sprintf("Invalid strategy '%s' for %s.%s", rule.Strategy, scope, column))
		}
		if rule.Strategy == StrategyFaker && (rule.Faker == nil || rule.Faker.Method == "") {
			problems = append(problems, fmt.Sprintf("Faker strategy requires 'method' for %s.%s", scope, column))
		}
	}

	for _, table := range sortedKeys(c.tables) {
		for _, column := range sortedKeys(c.tables[table]) {
			check(table, column, c.tables[table][column])
		}
	}
	for _, pattern := range c.globalOrder {
		check("*", pattern, c.global[pattern])
	}
	return problems
}

// ValidateFakerMethods checks that the first call of every faker chain names
// one of methods. Matching is case-insensitive.
func (c *Config) ValidateFakerMethods(methods []string) []string {
	known := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		known[strings.ToLower(m)] = struct{}{}
	}

	var problems []string
	check := func(scope, column string, rule Rule) {
		if rule.Strategy != StrategyFaker || rule.Faker == nil || rule.Faker.Method == "" {
			return
		}
		calls, err := ParseChain(rule.Faker.Method)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Invalid faker method '%s' for %s.%s", rule.Faker.Method, scope, column))
			return
		}
		if _, ok := known[strings.ToLower(calls[0].Name)]; !ok {
			problems = append(problems, fmt.Sprintf("Unknown faker method '%s' for %s.%s", calls[0].Name, scope, column))
		}
	}

	for _, table := range sortedKeys(c.tables) {
		for _, column := range sortedKeys(c.tables[table]) {
			check(table, column, c.tables[table][column])
		}
	}
	for _, pattern := range c.globalOrder {
		check("*", pattern, c.global[pattern])
	}
	return problems
}

// Merge combines configs left to right; later rules override earlier ones
// per table column and per global pattern.
func Merge(configs ...*Config) *Config {
	tables := make(map[string]map[string]Rule)
	global := make(map[string]Rule)
	preserve := make(map[string]PreserveRule)

	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		for table, columns := range cfg.tables {
			if tables[table] == nil {
				tables[table] = make(map[string]Rule)
			}
			for column, rule := range columns {
				tables[table][column] = rule
			}
		}
		for pattern, rule := range cfg.global {
			global[pattern] = rule
		}
		for table, rule := range cfg.preserveRows {
			preserve[table] = rule
		}
	}
	return NewConfig(tables, global, preserve)
}

// ToMap renders the config in its configuration-file shape.
func (c *Config) ToMap() map[string]interface{} {
	tables := make(map[string]interface{}, len(c.tables))
	for table, columns := range c.tables {
		cols := make(map[string]interface{}, len(columns))
		for column, rule := range columns {
			cols[column] = rule.ToMap()
		}
		tables[table] = cols
	}
	global := make(map[string]interface{}, len(c.global))
	for pattern, rule := range c.global {
		global[pattern] = rule.ToMap()
	}
	return map[string]interface{}{
		"tables":        tables,
		"global":        global,
		"preserve_rows": c.preserveRows,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
