package anonymize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "mysql-db-export/internal/errors"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/crypto/bcrypt"
)

// Built-in strategy names
const (
	StrategyFaker = "faker"
	StrategyMask  = "mask"
	StrategyNull  = "null"
	StrategyHash  = "hash"
	StrategyFixed = "fixed"
)

// Hash algorithms accepted by the hash strategy
const (
	AlgorithmBcrypt = "bcrypt"
	AlgorithmMD5    = "md5"
	AlgorithmSHA256 = "sha256"
	AlgorithmSHA512 = "sha512"
)

// Mask types with dedicated formatting
const (
	MaskTypeEmail = "email"
	MaskTypePhone = "phone"
)

// Rule is a parsed anonymization rule. Exactly one of the option pointers
// is set for built-in strategies; custom strategies read Raw.
type Rule struct {
	Strategy     string
	PreserveNull bool
	Faker        *FakerOptions
	Mask         *MaskOptions
	Hash         *HashOptions
	Fixed        *FixedOptions
	Raw          map[string]interface{}
}

// FakerOptions configures the faker strategy
type FakerOptions struct {
	Method string        `mapstructure:"method" yaml:"method"`
	Args   []interface{} `mapstructure:"args" yaml:"args,omitempty"`
}

// MaskOptions configures the mask strategy
type MaskOptions struct {
	Char           string `mapstructure:"char" yaml:"char"`
	KeepFirst      int    `mapstructure:"keep_first" yaml:"keep_first"`
	KeepLast       int    `mapstructure:"keep_last" yaml:"keep_last"`
	PreserveFormat bool   `mapstructure:"preserve_format" yaml:"preserve_format"`
	Type           string `mapstructure:"type" yaml:"type,omitempty"`
}

// HashOptions configures the hash strategy
type HashOptions struct {
	Algorithm string      `mapstructure:"algorithm" yaml:"algorithm"`
	Cost      int         `mapstructure:"cost" yaml:"cost"`
	Salt      string      `mapstructure:"salt" yaml:"salt,omitempty"`
	Value     interface{} `mapstructure:"value" yaml:"value,omitempty"`
}

// FixedOptions configures the fixed strategy
type FixedOptions struct {
	Value interface{} `mapstructure:"value" yaml:"value"`
}

// ParseRule decodes a flat rule map such as
// {strategy: mask, keep_last: 4} into a typed Rule and validates it.
func ParseRule(raw map[string]interface{}) (Rule, error) {
	strategy, _ := raw["strategy"].(string)
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return Rule{}, apperrors.NewMissingOptionError("", "strategy")
	}

	rule := Rule{
		Strategy:     strategy,
		PreserveNull: true,
		Raw:          raw,
	}
	if v, ok := raw["preserve_null"]; ok {
		var preserve bool
		if err := decode(v, &preserve); err != nil {
			return Rule{}, apperrors.NewConfigurationError("preserve_null must be a boolean", err)
		}
		rule.PreserveNull = preserve
	}

	switch strategy {
	case StrategyFaker:
		opts := &FakerOptions{}
		if err := decode(raw, opts); err != nil {
			return Rule{}, invalidOptions(strategy, err)
		}
		if strings.TrimSpace(opts.Method) == "" {
			return Rule{}, apperrors.NewMissingOptionError(strategy, "method")
		}
		rule.Faker = opts

	case StrategyMask:
		opts := &MaskOptions{Char: "*"}
		if err := decode(raw, opts); err != nil {
			return Rule{}, invalidOptions(strategy, err)
		}
		if opts.Char == "" {
			opts.Char = "*"
		}
		if utf8.RuneCountInString(opts.Char) != 1 {
			return Rule{}, apperrors.NewConfigurationError(fmt.Sprintf("mask char must be a single character, got %q", opts.Char), nil).
				WithContext("strategy", strategy)
		}
		if opts.KeepFirst < 0 || opts.KeepLast < 0 {
			return Rule{}, apperrors.NewConfigurationError("keep_first and keep_last must not be negative", nil).
				WithContext("strategy", strategy)
		}
		switch opts.Type {
		case "", MaskTypeEmail, MaskTypePhone:
		default:
			return Rule{}, apperrors.NewConfigurationError(fmt.Sprintf("unknown mask type %q", opts.Type), nil).
				WithContext("strategy", strategy)
		}
		rule.Mask = opts

	case StrategyHash:
		opts := &HashOptions{Algorithm: AlgorithmBcrypt, Cost: bcrypt.DefaultCost}
		if err := decode(raw, opts); err != nil {
			return Rule{}, invalidOptions(strategy, err)
		}
		opts.Algorithm = strings.ToLower(opts.Algorithm)
		switch opts.Algorithm {
		case AlgorithmBcrypt, AlgorithmMD5, AlgorithmSHA256, AlgorithmSHA512:
		default:
			return Rule{}, apperrors.NewConfigurationError(fmt.Sprintf("unsupported hash algorithm %q", opts.Algorithm), nil).
				WithContext("strategy", strategy)
		}
		if opts.Cost < bcrypt.MinCost || opts.Cost > bcrypt.MaxCost {
			return Rule{}, apperrors.NewConfigurationError(
				fmt.Sprintf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost), nil).
				WithContext("strategy", strategy)
		}
		rule.Hash = opts

	case StrategyFixed:
		opts := &FixedOptions{}
		if err := decode(raw, opts); err != nil {
			return Rule{}, invalidOptions(strategy, err)
		}
		rule.Fixed = opts

	case StrategyNull:
	}

	return rule, nil
}

// MustParseRule is ParseRule for statically known rules; it panics on error.
func MustParseRule(raw map[string]interface{}) Rule {
	rule, err := ParseRule(raw)
	if err != nil {
		panic(err)
	}
	return rule
}

// ToMap renders the rule back into its flat configuration form.
func (r Rule) ToMap() map[string]interface{} {
	if r.Raw != nil {
		out := make(map[string]interface{}, len(r.Raw))
		for k, v := range r.Raw {
			out[k] = v
		}
		return out
	}
	return map[string]interface{}{"strategy": r.Strategy}
}

func decode(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func invalidOptions(strategy string, err error) error {
	return apperrors.NewConfigurationError(fmt.Sprintf("invalid options for strategy %q", strategy), err).
		WithContext("strategy", strategy)
}
