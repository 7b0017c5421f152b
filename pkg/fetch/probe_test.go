package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_CheckLiveness(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/moved.png", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok.png", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/nohead.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write([]byte("png"))
	})
	mux.HandleFunc("/forbidden-head.png", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	prober := NewProber(testClient(), testConfig(3), nil, testLogger())
	ctx := context.Background()

	tests := []struct {
		path string
		want int
	}{
		{"/ok.png", http.StatusOK},
		{"/missing.png", http.StatusNotFound},
		{"/moved.png", http.StatusMovedPermanently},
		{"/nohead.png", http.StatusOK},
		{"/forbidden-head.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := prober.CheckLiveness(ctx, server.URL+tt.path)
			require.NoError(t, res.Err)
			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestProber_CheckLiveness_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/img.png"
	server.Close()

	prober := NewProber(testClient(), testConfig(3), nil, testLogger())
	res := prober.CheckLiveness(context.Background(), target)
	assert.Error(t, res.Err)
	assert.Equal(t, 0, res.StatusCode)
}

func TestProber_Head_ContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/big.jpg" {
			w.Header().Set("Content-Length", "2500000")
		}
	}))
	t.Cleanup(server.Close)

	prober := NewProber(testClient(), testConfig(3), nil, testLogger())

	res := prober.Head(context.Background(), server.URL+"/big.jpg")
	require.NoError(t, res.Err)
	assert.Equal(t, int64(2500000), res.ContentLength)
}
