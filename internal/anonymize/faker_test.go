package anonymize

import (
	"errors"
	"testing"

	apperrors "mysql-db-export/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	values map[string]interface{}
	err    error
	calls  []string
	args   [][]interface{}
}

func (s *stubGenerator) Generate(method string, args []interface{}) (interface{}, error) {
	s.calls = append(s.calls, method)
	s.args = append(s.args, args)
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.values[method]
	if !ok {
		return nil, errors.New("unsupported method " + method)
	}
	return v, nil
}

type stubAddress struct {
	Street string
	City   string
}

func (a stubAddress) Upper(prefix string) string {
	return prefix + a.City
}

func fakerRule(t *testing.T, raw map[string]interface{}) Rule {
	t.Helper()
	raw["strategy"] = StrategyFaker
	rule, err := ParseRule(raw)
	require.NoError(t, err)
	return rule
}

func TestParseInlineArgs(t *testing.T) {
	args := ParseInlineArgs(`1, -7, 2.5, true, false, null, 'a, b', "x", bare`)
	assert.Equal(t, []interface{}{1, -7, 2.5, true, false, nil, "a, b", "x", "bare"}, args)

	assert.Empty(t, ParseInlineArgs("   "))
}

func TestParseChain(t *testing.T) {
	calls, err := ParseChain("address->city")
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "address", calls[0].Name)
	assert.Equal(t, "city", calls[1].Name)
	assert.False(t, calls[1].Inline)

	calls, err = ParseChain("numberBetween(1, 10)")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Inline)
	assert.Equal(t, []interface{}{1, 10}, calls[0].Args)

	calls, err = ParseChain(`regex('a->b')->upper`)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, []interface{}{"a->b"}, calls[0].Args)

	_, err = ParseChain("bad name!")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestFakerStrategyApply(t *testing.T) {
	gen := &stubGenerator{values: map[string]interface{}{
		"safeEmail":     "fake@example.org",
		"address":       &stubAddress{Street: "1 Main St", City: "Springfield"},
		"numberBetween": 7,
	}}
	s := NewFakerStrategy(gen)

	t.Run("simple method", func(t *testing.T) {
		got, err := s.Apply("real@corp.com", fakerRule(t, map[string]interface{}{"method": "safeEmail"}))
		require.NoError(t, err)
		assert.Equal(t, "fake@example.org", got)
	})

	t.Run("chained field", func(t *testing.T) {
		got, err := s.Apply("x", fakerRule(t, map[string]interface{}{"method": "address->city"}))
		require.NoError(t, err)
		assert.Equal(t, "Springfield", got)
	})

	t.Run("chained method with inline args", func(t *testing.T) {
		got, err := s.Apply("x", fakerRule(t, map[string]interface{}{"method": "address->upper('City: ')"}))
		require.NoError(t, err)
		assert.Equal(t, "City: Springfield", got)
	})

	t.Run("struct result collapses to first string field", func(t *testing.T) {
		got, err := s.Apply("x", fakerRule(t, map[string]interface{}{"method": "address"}))
		require.NoError(t, err)
		assert.Equal(t, "1 Main St", got)
	})

	t.Run("args option reaches generator", func(t *testing.T) {
		_, err := s.Apply("x", fakerRule(t, map[string]interface{}{"method": "numberBetween", "args": []interface{}{1, 9}}))
		require.NoError(t, err)
		assert.Equal(t, []interface{}{1, 9}, gen.args[len(gen.args)-1])
	})

	t.Run("null preserved by default", func(t *testing.T) {
		calls := len(gen.calls)
		got, err := s.Apply(nil, fakerRule(t, map[string]interface{}{"method": "safeEmail"}))
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Len(t, gen.calls, calls)
	})

	t.Run("null replaced when preserve_null is false", func(t *testing.T) {
		got, err := s.Apply(nil, fakerRule(t, map[string]interface{}{"method": "safeEmail", "preserve_null": false}))
		require.NoError(t, err)
		assert.Equal(t, "fake@example.org", got)
	})

	t.Run("unknown chained member", func(t *testing.T) {
		_, err := s.Apply("x", fakerRule(t, map[string]interface{}{"method": "address->zip"}))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStrategy))
	})
}

func TestFakerStrategyErrors(t *testing.T) {
	s := NewFakerStrategy(&stubGenerator{err: errors.New("provider missing")})

	_, err := s.Apply("x", Rule{Strategy: StrategyFaker, PreserveNull: true})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	_, err = s.Apply("x", fakerRule(t, map[string]interface{}{"method": "name"}))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStrategy))
	assert.Contains(t, err.Error(), "provider missing")

	_, err = ParseRule(map[string]interface{}{"strategy": "faker"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestGofakeitGenerator(t *testing.T) {
	gen := NewGofakeitGenerator(42)

	email, err := gen.Generate("safeEmail", nil)
	require.NoError(t, err)
	assert.Contains(t, email, "@")

	name, err := gen.Generate("name", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	n, err := gen.Generate("numberBetween", []interface{}{1, 3})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 3)

	_, err = gen.Generate("noSuchMethod", nil)
	assert.Error(t, err)

	s := NewFakerStrategy(gen)
	city, err := s.Apply("x", fakerRule(t, map[string]interface{}{"method": "address->city"}))
	require.NoError(t, err)
	assert.IsType(t, "", city)
	assert.NotEmpty(t, city)
}
