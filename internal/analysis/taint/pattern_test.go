// File: internal/analysis/taint/pattern_test.go
package taint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_Normalizes(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog(0, Pattern{
		Name:      "  XSS ",
		Sources:   []string{"$_GET", " _POST", "$_GET", ""},
		Endorsers: []string{"HtmlSpecialChars"},
		Sinks:     []string{"Echo", "print "},
	})
	require.NoError(t, err)

	assert.Equal(t, "XSS", c.Name())
	assert.Equal(t, []string{"_GET", "_POST"}, c.Sources())
	assert.True(t, c.IsSink("echo"))
	assert.True(t, c.IsSink("PRINT"))
	assert.False(t, c.IsSink("exit"))
	assert.True(t, c.IsEndorser("htmlspecialchars"))
	assert.False(t, c.IsEndorser("strip_tags"))

	assert.Equal(t, Pattern{
		Name:      "XSS",
		Sources:   []string{"_GET", "_POST"},
		Endorsers: []string{"HtmlSpecialChars"},
		Sinks:     []string{"Echo", "print"},
	}, c.Pattern())

	sink, ok := c.Sink("ECHO")
	assert.True(t, ok)
	assert.Equal(t, "Echo", sink)
	endorser, ok := c.Endorser("htmlspecialchars")
	assert.True(t, ok)
	assert.Equal(t, "HtmlSpecialChars", endorser)
}

func TestNewCatalog_FirstSpellingWins(t *testing.T) {
	t.Parallel()
	c := mustCatalog(t, Pattern{Name: "p", Sources: []string{"a"}, Sinks: []string{"mysql_query", "MYSQL_QUERY"}})
	assert.Equal(t, []string{"mysql_query"}, c.Pattern().Sinks)
}

func TestNewCatalog_EndorsersOptional(t *testing.T) {
	t.Parallel()
	c, err := NewCatalog(0, Pattern{Name: "p", Sources: []string{"a"}, Sinks: []string{"b"}})
	require.NoError(t, err)
	assert.Nil(t, c.Pattern().Endorsers)
}

func TestNewCatalog_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern Pattern
		field   string
	}{
		{"no name", Pattern{Sources: []string{"a"}, Sinks: []string{"b"}}, "name"},
		{"blank sources", Pattern{Name: "p", Sources: []string{" ", "$"}, Sinks: []string{"b"}}, "sources"},
		{"no sinks", Pattern{Name: "p", Sources: []string{"a"}}, "sinks"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCatalog(5, tc.pattern)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Equal(t, 5, cfgErr.Index)
			assert.Contains(t, cfgErr.Error(), tc.field)
		})
	}
}

func TestCompile_StopsAtFirstError(t *testing.T) {
	t.Parallel()
	_, err := Compile([]Pattern{xssPattern(), {Name: "bad"}})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 1, cfgErr.Index)

	catalogs, err := Compile([]Pattern{xssPattern()})
	require.NoError(t, err)
	assert.Len(t, catalogs, 1)
}

func TestCompile_EmptyIsAnError(t *testing.T) {
	t.Parallel()
	_, err := Compile(nil)
	assert.ErrorIs(t, err, ErrNoPatterns)
}
