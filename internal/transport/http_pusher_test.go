package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/torua/internal/membership"
)

func TestHTTPPusherOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/membership/update", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPPusher(func(membership.ServerId) (string, error) { return srv.URL, nil })
	result, err := p.Push(context.Background(), membership.NewServerId(1, 0), membership.WireMessage{VersionNumber: 1})
	require.NoError(t, err)
	require.Equal(t, membership.PushOK, result)
}

func TestHTTPPusherNotUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	p := NewHTTPPusher(func(membership.ServerId) (string, error) { return srv.URL, nil })
	result, err := p.Push(context.Background(), membership.NewServerId(1, 0), membership.WireMessage{})
	require.NoError(t, err)
	require.Equal(t, membership.PushNotUp, result)
}

func TestHTTPPusherUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPusher(func(membership.ServerId) (string, error) { return srv.URL, nil })
	_, err := p.Push(context.Background(), membership.NewServerId(1, 0), membership.WireMessage{})
	require.Error(t, err)
}

func TestHTTPPusherResolveError(t *testing.T) {
	p := NewHTTPPusher(func(membership.ServerId) (string, error) {
		return "", assert.AnError
	})
	_, err := p.Push(context.Background(), membership.NewServerId(1, 0), membership.WireMessage{})
	require.Error(t, err)
}
