package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	m, err := NewManager("s3cret", time.Hour, "noticias")
	require.NoError(t, err)

	tok, exp, err := m.Sign("editor")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "editor", claims.Username)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	a, _ := NewManager("one", time.Hour, "noticias")
	b, _ := NewManager("two", time.Hour, "noticias")
	tok, _, err := a.Sign("editor")
	require.NoError(t, err)

	_, err = b.Parse(tok)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	m, _ := NewManager("s3cret", time.Minute, "noticias")
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := m.Sign("editor")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(tok)
	assert.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewManager("", time.Hour, "")
	assert.Error(t, err)
}
