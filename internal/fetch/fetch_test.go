package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "epitrack/internal/errors"
)

func TestClient_Fetch(t *testing.T) {
	body := "Province/State,Country/Region,1/22/20\n,Italy,0\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "epitrack-test", r.Header.Get("User-Agent"))
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient(WithUserAgent("epitrack-test"), WithTimeout(5*time.Second))

	raw, err := client.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, body, string(raw))
}

func TestClient_FetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient()

	_, err := client.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNetwork, appErr.Type)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_FetchConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // connection refused from here on

	client := NewClient(WithTimeout(2 * time.Second))

	_, err := client.Fetch(context.Background(), url)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNetwork, appErr.Type)
}

func TestClient_FetchContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_FetchInvalidURL(t *testing.T) {
	client := NewClient()

	_, err := client.Fetch(context.Background(), "://not-a-url")
	require.Error(t, err)

	var appErr *apperrors.AppError
	assert.ErrorAs(t, err, &appErr)
}
