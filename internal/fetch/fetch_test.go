package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"absolute url passthrough", "https://host/csv", "https://other/x.csv", "https://other/x.csv"},
		{"url base joins basename", "https://host/csv", "data/exports/synsets.csv", "https://host/csv/synsets.csv"},
		{"url base trailing slash", "https://host/csv/", "synsets.csv", "https://host/csv/synsets.csv"},
		{"dir base joins basename", "/data/csv", "exports/synsets.csv", filepath.Join("/data/csv", "synsets.csv")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.base, zap.NewNop())
			assert.Equal(t, tt.want, f.Resolve(tt.path))
		})
	}
}

func TestSHA256(t *testing.T) {
	dir := t.TempDir()
	content := "synsetid,pos\n100,n\n"
	location := writeFile(t, dir, "synsets.csv", content)

	sum := sha256.Sum256([]byte(content))
	f := New(dir, zap.NewNop())
	got, err := f.SHA256(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestCountRows(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, zap.NewNop())

	tests := []struct {
		name    string
		content string
		want    int64
	}{
		{"rows", "h\na\nb\nc\n", 3},
		{"header only", "h\n", 0},
		{"empty file", "", 0},
		{"no trailing newline", "h\na\nb", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location := writeFile(t, dir, tt.name+".csv", tt.content)
			got, err := f.CountRows(context.Background(), location)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountMissingColumn(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, zap.NewNop())

	// Header carries a BOM; values include blank, sentinel, and padded forms.
	content := "\uFEFFsynset1id,linkid,synset2id\n" +
		"1,1,2\n" +
		"1,,2\n" +
		"1,\\N,2\n" +
		"1, ,2\n" +
		"1,2,2\n"
	location := writeFile(t, dir, "semlinkref.csv", content)

	missing, err := f.CountMissingColumn(context.Background(), location, "synset1id")
	require.NoError(t, err)
	assert.Equal(t, 0, missing)

	missing, err = f.CountMissingColumn(context.Background(), location, "linkid")
	require.NoError(t, err)
	assert.Equal(t, 3, missing)

	_, err = f.CountMissingColumn(context.Background(), location, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "ghost" not found`)
}

func TestOpenHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "h\n1\n2\n")
	}))
	defer server.Close()

	f := New(server.URL, zap.NewNop())

	rows, err := f.CountRows(context.Background(), f.Resolve("data.csv"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	_, err = f.Open(context.Background(), server.URL+"/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
