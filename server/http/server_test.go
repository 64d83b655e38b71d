package http

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/server"
)

func TestServerServesWithMiddleware(t *testing.T) {
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Tag", "outer")
			next.ServeHTTP(w, r)
		})
	}

	srv := NewServer(
		server.WithAddress("127.0.0.1:0"),
		WithMiddleware(tag),
	)

	require.NoError(t, srv.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})))
	require.NoError(t, srv.Start())

	rsp, err := http.Get("http://" + srv.Options().Address + "/")
	require.NoError(t, err)
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.Equal(t, "outer", rsp.Header.Get("X-Tag"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}

func TestServerRejectsNonHandler(t *testing.T) {
	srv := NewServer()
	require.Error(t, srv.Handle("nope"))
	require.Error(t, srv.Start())
}
