package userservice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingSync/pkg/logger"
)

func TestClient_GetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/users/7/profile":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"name":"Anna","avatar_url":"https://cdn/a.png","role":"provider"}`))
		case "/internal/users/8/profile":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, logger.NewNop())

	p, err := c.GetProfile(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Anna", p.Name)
	assert.Equal(t, "provider", p.ToDomain().Role)

	_, err = c.GetProfile(context.Background(), 8)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	_, err = c.GetProfile(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}
