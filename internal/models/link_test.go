package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"empty array", "[]", nil},
		{"null", "null", nil},
		{"json array", `["US","DE"]`, []string{"US", "DE"}},
		{"json array lowercase", `["us"," de "]`, []string{"US", "DE"}},
		{"comma separated", "us,de", []string{"US", "DE"}},
		{"comma separated with spaces", " us , de ,", []string{"US", "DE"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := Target{Countries: tc.raw}
			got, err := target.CountryList()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("malformed json is an error", func(t *testing.T) {
		target := Target{Countries: `["US"`}
		_, err := target.CountryList()
		assert.Error(t, err)
	})
}

func TestAllowsCountry(t *testing.T) {
	t.Run("empty list allows everything", func(t *testing.T) {
		target := Target{}
		ok, err := target.AllowsCountry("JP")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wildcard", func(t *testing.T) {
		target := Target{Countries: `["ALL"]`}
		ok, err := target.AllowsCountry("FR")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("case insensitive match", func(t *testing.T) {
		target := Target{Countries: `["US","DE"]`}
		ok, err := target.AllowsCountry("de")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = target.AllowsCountry("FR")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestParamMaps(t *testing.T) {
	target := Target{
		ParamMapping: `{"src":"utm_source"}`,
		StaticParams: "",
	}

	mapping, err := target.ParamMappingMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"src": "utm_source"}, mapping)

	static, err := target.StaticParamsMap()
	require.NoError(t, err)
	assert.Empty(t, static)

	target.StaticParams = `{bad`
	_, err = target.StaticParamsMap()
	assert.Error(t, err)
}

func TestCapExhausted(t *testing.T) {
	assert.False(t, (&Link{TotalCap: 0, CurrentHits: 1000}).CapExhausted())
	assert.False(t, (&Link{TotalCap: 10, CurrentHits: 9}).CapExhausted())
	assert.True(t, (&Link{TotalCap: 10, CurrentHits: 10}).CapExhausted())

	assert.False(t, (&Target{Cap: 0, CurrentHits: 5}).CapExhausted())
	assert.True(t, (&Target{Cap: 5, CurrentHits: 5}).CapExhausted())
}
