package anonymize

import (
	"sort"
	"strings"
	"sync"

	apperrors "mysql-db-export/internal/errors"
)

// Strategy transforms a single column value according to a rule.
type Strategy interface {
	Name() string
	Supports(rule Rule) bool
	Apply(value interface{}, rule Rule) (interface{}, error)
}

// Registry holds the strategies available to an Engine.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	generator  Generator
}

// MethodLister is implemented by generators that can enumerate their methods.
type MethodLister interface {
	Methods() []string
}

// NewRegistry creates a registry with the built-in strategies. The faker
// strategy draws values from generator.
func NewRegistry(generator Generator) *Registry {
	r := &Registry{strategies: make(map[string]Strategy), generator: generator}
	r.Register(NewFakerStrategy(generator))
	r.Register(NewMaskStrategy())
	r.Register(NullStrategy{})
	r.Register(NewHashStrategy())
	r.Register(FixedStrategy{})
	return r
}

// Register adds or replaces a strategy under its name.
func (r *Registry) Register(strategy Strategy) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[strategy.Name()] = strategy
	return r
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	strategy, ok := r.strategies[name]
	if !ok {
		return nil, apperrors.NewUnknownStrategyError(name)
	}
	return strategy, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks cfg against the registered strategies and, when the
// generator can list them, the faker methods it knows. All problems are
// reported in one ConfigurationError.
func (r *Registry) Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	problems := cfg.Validate(r.Names())
	if lister, ok := r.generator.(MethodLister); ok {
		problems = append(problems, cfg.ValidateFakerMethods(lister.Methods())...)
	}
	if len(problems) == 0 {
		return nil
	}
	return apperrors.NewConfigurationError("invalid anonymization rules: "+strings.Join(problems, "; "), nil).
		WithContext("problems", problems)
}
