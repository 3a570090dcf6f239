package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchOriginPattern(t *testing.T) {
	cases := []struct {
		pattern, origin string
		want            bool
	}{
		{"example.mx", "https://example.mx", true},
		{"*.example.mx", "https://deportes.example.mx", true},
		{"*.example.mx", "https://example.mx.evil.com", false},
		{"localhost:*", "http://localhost:5173", true},
		{"example.mx", "https://otro.mx", false},
		{"https://Example.MX/", "https://example.mx", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchOriginPattern(tc.pattern, extractOriginHost(tc.origin)), tc.pattern+" vs "+tc.origin)
	}
}
