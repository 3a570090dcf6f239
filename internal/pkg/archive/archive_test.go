package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	s := New(Config{Bucket: "b", Region: "us-east-1", Prefix: "/boletines/"})
	assert.Equal(t, "boletines/criterio/morning/2026-03-10.html", s.Key("criterio", "morning", "2026-03-10.html"))

	s = New(Config{Bucket: "b", Region: "us-east-1"})
	assert.Equal(t, "a/b", s.Key("/a/", "", "b"))
}

func TestURL(t *testing.T) {
	s := New(Config{Bucket: "b", Region: "us-east-1"})
	assert.Equal(t, "s3://b/k.html", s.URL("k.html"))

	s = New(Config{Bucket: "b", Region: "us-east-1", PublicURL: "https://cdn.example.mx/"})
	assert.Equal(t, "https://cdn.example.mx/k.html", s.URL("k.html"))
}

func TestPutHTMLAgainstFakeEndpoint(t *testing.T) {
	var gotPath, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(Config{
		Bucket:    "archivo",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "AKIA",
		SecretKey: "secret",
		PublicURL: "https://cdn.example.mx",
	})
	url, err := s.PutHTML(context.Background(), "boletines/x.html", []byte("<p>hola</p>"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.mx/boletines/x.html", url)
	assert.Equal(t, "/archivo/boletines/x.html", gotPath)
	assert.Equal(t, "text/html; charset=utf-8", gotType)
	assert.Contains(t, gotBody, "<p>hola</p>")
}
