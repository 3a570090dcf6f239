package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Política Nacional":   "politica-nacional",
		"  Fútbol / Liga MX ": "futbol-liga-mx",
		"Año Nuevo":           "ano-nuevo",
		"Economía":            "economia",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestMatcherIsDiacriticInsensitive(t *testing.T) {
	re := Matcher("politica-nacional")
	assert.True(t, re.MatchString("Política Nacional"))
	assert.True(t, re.MatchString("politica nacional"))
	assert.True(t, re.MatchString(" POLÍTICA - NACIONAL "))
	assert.False(t, re.MatchString("Política Nacional e Internacional"))
	assert.False(t, re.MatchString("Política"))
}

func TestMatcherRoundTripsMake(t *testing.T) {
	for _, name := range []string{"Deportes", "Ciencia y Tecnología", "Año Nuevo", "C++ & Go"} {
		assert.True(t, Matcher(Make(name)).MatchString(name), name)
	}
}

func TestPatternEmpty(t *testing.T) {
	assert.Equal(t, `^\s*\s*$`, Pattern(""))
}
