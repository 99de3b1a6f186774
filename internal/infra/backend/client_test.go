package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas-scraper/internal/domain/entity"
)

func testObjectified() entity.ObjectifiedArticle {
	return entity.ObjectifiedArticle{
		ArticleID:       "f6b2a0e4-0000-0000-0000-000000000000",
		Title:           "Deprem Sonrası Gelişmeler",
		Summary:         "Kısa özet.",
		LongerSummary:   "Daha uzun özet.",
		Category:        "Siyaset",
		Tags:            []string{},
		Source:          []string{"https://www.sozcu.com.tr/gundem/x", "https://t24.com.tr/haber/y"},
		PopularityScore: 0,
		CreatedAt:       "2025-03-14T10:00:00Z",
	}
}

func TestSend_MultipartContract(t *testing.T) {
	var gotData string
	var hadImage bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotData = r.FormValue("data")
		_, _, err := r.FormFile("image")
		hadImage = err == nil
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewWithHTTPClient(server.URL, server.Client())
	err := c.Send(context.Background(), testObjectified(), "")
	require.NoError(t, err)
	assert.False(t, hadImage)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(gotData), &decoded))
	assert.Equal(t, "Deprem Sonrası Gelişmeler", decoded["title"])

	sources, ok := decoded["source"].([]any)
	require.True(t, ok)
	assert.Equal(t, "sozcu", sources[0])
	assert.Equal(t, "t24", sources[1])
}

func TestSend_AttachesImage(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "image.jpg")
	require.NoError(t, os.WriteFile(imgPath, []byte("fake-jpeg-bytes"), 0o644))

	var gotImage []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotImage = buf[:n]
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewWithHTTPClient(server.URL, server.Client())
	require.NoError(t, c.Send(context.Background(), testObjectified(), imgPath))
	assert.Equal(t, "fake-jpeg-bytes", string(gotImage))
}

func TestSend_Non201IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewWithHTTPClient(server.URL, server.Client())
	err := c.Send(context.Background(), testObjectified(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSend_TruncatesBoundedFields(t *testing.T) {
	var gotData string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotData = r.FormValue("data")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	a := testObjectified()
	a.ArticleID = strings.Repeat("x", 150)
	loc := strings.Repeat("y", 150)
	a.Location = &loc

	c := NewWithHTTPClient(server.URL, server.Client())
	require.NoError(t, c.Send(context.Background(), a, ""))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(gotData), &decoded))
	assert.Len(t, decoded["articleId"], 100)
	assert.Len(t, decoded["location"], 100)
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.sozcu.com.tr/gundem/x", "sozcu"},
		{"https://t24.com.tr/haber/y", "t24"},
		{"https://haber.sol.org.tr/z", "haber"},
		{"zaten-isim", "zaten-isim"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceName(tt.in), tt.in)
	}
}
