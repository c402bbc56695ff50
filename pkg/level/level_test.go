package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaseInsensitive(t *testing.T) {
	lvl, ok := Parse("WARNING")
	require.True(t, ok)
	assert.Equal(t, Warning, lvl)
}

func TestParseUnknownNameInvalid(t *testing.T) {
	_, ok := Parse("verbose")
	assert.False(t, ok)
}

// Scenario 2 from spec.md §8.
func TestModuleOverrideScenario(t *testing.T) {
	r := NewResolver(Warning, map[string]Level{"db": Debug})
	assert.Equal(t, Debug, r.Effective("db.pool"))
	assert.Equal(t, Warning, r.Effective("api"))
}

func TestEmptyModuleLevelsFallsBackToDefault(t *testing.T) {
	r := NewResolver(Info, nil)
	assert.Equal(t, Info, r.Effective("anything.at.all"))
}

func TestLongestPrefixWins(t *testing.T) {
	r := NewResolver(Warning, map[string]Level{
		"db":      Info,
		"db.pool": Debug,
	})
	assert.Equal(t, Debug, r.Effective("db.pool.conn"))
	assert.Equal(t, Info, r.Effective("db.migrations"))
}

func TestPrefixRequiresDotBoundary(t *testing.T) {
	r := NewResolver(Warning, map[string]Level{"db": Debug})
	assert.Equal(t, Warning, r.Effective("database"))
}

func TestResolutionIsPureAndCached(t *testing.T) {
	r := NewResolver(Info, map[string]Level{"db": Debug})
	a := r.Effective("db.pool")
	b := r.Effective("db.pool")
	assert.Equal(t, a, b)
}

func TestBoundaryLevelNotSuppressed(t *testing.T) {
	// spec.md §8: level at exact boundary (info configured, info emitted)
	// is not suppressed -- i.e. Info >= Info is true (inclusive compare).
	assert.True(t, Info >= Info)
}
