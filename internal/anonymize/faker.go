package anonymize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "mysql-db-export/internal/errors"
)

// Generator produces fake values by method name, e.g. Generate("safeEmail", nil).
type Generator interface {
	Generate(method string, args []interface{}) (interface{}, error)
}

// FakerStrategy replaces values with generated fake data.
type FakerStrategy struct {
	generator Generator
}

// NewFakerStrategy creates a faker strategy backed by generator
func NewFakerStrategy(generator Generator) *FakerStrategy {
	return &FakerStrategy{generator: generator}
}

func (s *FakerStrategy) Name() string { return StrategyFaker }

func (s *FakerStrategy) Supports(rule Rule) bool {
	return rule.Strategy == StrategyFaker && rule.Faker != nil && rule.Faker.Method != ""
}

// Apply evaluates the configured method. Chains such as "address->city" call
// the generator for the first step and resolve later steps on its result;
// args apply to the last step unless it carries inline arguments.
func (s *FakerStrategy) Apply(value interface{}, rule Rule) (interface{}, error) {
	if value == nil && rule.PreserveNull {
		return nil, nil
	}
	if rule.Faker == nil || strings.TrimSpace(rule.Faker.Method) == "" {
		return nil, apperrors.NewMissingOptionError(StrategyFaker, "method")
	}
	if s.generator == nil {
		return nil, apperrors.NewStrategyError(StrategyFaker, "no fake data generator configured", nil)
	}

	calls, err := ParseChain(rule.Faker.Method)
	if err != nil {
		return nil, err
	}
	last := &calls[len(calls)-1]
	if !last.Inline && len(rule.Faker.Args) > 0 {
		last.Args = rule.Faker.Args
	}

	result, err := s.generator.Generate(calls[0].Name, calls[0].Args)
	if err != nil {
		return nil, fakerError(rule.Faker.Method, err)
	}
	for _, call := range calls[1:] {
		result, err = invokeOn(result, call.Name, call.Args)
		if err != nil {
			return nil, fakerError(rule.Faker.Method, err)
		}
	}
	return flatten(result), nil
}

func fakerError(method string, err error) error {
	if _, ok := err.(*apperrors.AppError); ok {
		return err
	}
	return apperrors.NewStrategyError(StrategyFaker, fmt.Sprintf("faker method %q failed", method), err).
		WithContext("method", method)
}

// Call is one step of a faker method chain.
type Call struct {
	Name   string
	Args   []interface{}
	Inline bool
}

var callPattern = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

// ParseChain splits "a->b(1, 'x')->c" into calls with parsed inline arguments.
func ParseChain(method string) ([]Call, error) {
	segments := splitOutsideQuotes(method, "->")
	calls := make([]Call, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		m := callPattern.FindStringSubmatch(segment)
		if m == nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid faker method %q", method), nil).
				WithContext("strategy", StrategyFaker)
		}
		call := Call{Name: m[1]}
		if strings.HasSuffix(segment, ")") {
			call.Inline = true
			call.Args = ParseInlineArgs(m[2])
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// ParseInlineArgs parses a comma-separated argument list. Commas inside
// quotes do not split; true, false, null, numbers and quoted strings become
// typed values and anything else stays a bare string.
func ParseInlineArgs(s string) []interface{} {
	if strings.TrimSpace(s) == "" {
		return []interface{}{}
	}

	parts := splitOutsideQuotes(s, ",")
	args := make([]interface{}, 0, len(parts))
	for _, part := range parts {
		args = append(args, parseLiteral(strings.TrimSpace(part)))
	}
	return args
}

func parseLiteral(part string) interface{} {
	switch part {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if len(part) >= 2 && (part[0] == '"' || part[0] == '\'') && part[len(part)-1] == part[0] {
		return part[1 : len(part)-1]
	}
	if strings.ContainsAny(part, ".eE") {
		if f, err := strconv.ParseFloat(part, 64); err == nil {
			return f
		}
	} else if i, err := strconv.ParseInt(part, 10, 64); err == nil {
		return int(i)
	}
	return part
}

func splitOutsideQuotes(s, sep string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
