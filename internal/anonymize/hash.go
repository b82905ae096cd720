package anonymize

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"

	apperrors "mysql-db-export/internal/errors"

	"golang.org/x/crypto/bcrypt"
)

// HashStrategy replaces values with a one-way hash.
type HashStrategy struct{}

// NewHashStrategy creates a hash strategy
func NewHashStrategy() *HashStrategy {
	return &HashStrategy{}
}

func (s *HashStrategy) Name() string { return StrategyHash }

func (s *HashStrategy) Supports(rule Rule) bool { return rule.Strategy == StrategyHash }

// Apply hashes the column value, or the configured value when one is set.
// A salt switches to a deterministic digest that is stable across exports.
func (s *HashStrategy) Apply(value interface{}, rule Rule) (interface{}, error) {
	if value == nil && rule.PreserveNull {
		return nil, nil
	}

	opts := rule.Hash
	if opts == nil {
		opts = &HashOptions{Algorithm: AlgorithmBcrypt, Cost: bcrypt.DefaultCost}
	}

	input := value
	if opts.Value != nil {
		input = opts.Value
	}
	str := toString(input)

	if opts.Salt != "" {
		algorithm := opts.Algorithm
		if algorithm == AlgorithmBcrypt {
			algorithm = AlgorithmSHA256
		}
		return DeterministicHash(str, opts.Salt, algorithm)
	}

	switch opts.Algorithm {
	case AlgorithmMD5, AlgorithmSHA256, AlgorithmSHA512:
		return digest(opts.Algorithm, str)
	default:
		cost := opts.Cost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		// bcrypt reads at most 72 bytes and rejects longer input
		secret := []byte(str)
		if len(secret) > 72 {
			secret = secret[:72]
		}
		hashed, err := bcrypt.GenerateFromPassword(secret, cost)
		if err != nil {
			return nil, apperrors.NewStrategyError(StrategyHash, "bcrypt hashing failed", err)
		}
		return string(hashed), nil
	}
}

// DeterministicHash digests salt+value so the same input always yields the
// same pseudonym.
func DeterministicHash(value, salt, algorithm string) (string, error) {
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}
	return digest(algorithm, salt+value)
}

// Verify checks value against a bcrypt hash. Digests cannot be verified
// this way and always report false.
func Verify(value, hashed string) bool {
	if !strings.HasPrefix(hashed, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(value)) == nil
}

func digest(algorithm, value string) (string, error) {
	var h hash.Hash
	switch algorithm {
	case AlgorithmMD5:
		h = md5.New()
	case AlgorithmSHA256:
		h = sha256.New()
	case AlgorithmSHA512:
		h = sha512.New()
	default:
		return "", apperrors.NewStrategyError(StrategyHash, "unsupported digest algorithm "+algorithm, nil)
	}
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil)), nil
}
