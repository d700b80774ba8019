package main

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownServerDrainsInflightRequests(t *testing.T) {
	started := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln) //nolint:errcheck

	type result struct {
		code int
		err  error
	}
	results := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			results <- result{err: err}
			return
		}
		resp.Body.Close() //nolint:errcheck
		results <- result{code: resp.StatusCode}
	}()

	// Shut down while the request is still in the handler; it must be
	// allowed to finish rather than be cut off.
	<-started
	shutdownServer(srv)

	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.code)
}
