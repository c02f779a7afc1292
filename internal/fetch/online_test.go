package fetch

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOnlineProbe(t *testing.T) {
	assert.Equal(t, "generativelanguage.googleapis.com:443",
		NewOnlineProbe("https://generativelanguage.googleapis.com/v1beta/models").Addr)
	assert.Equal(t, "localhost:80", NewOnlineProbe("http://localhost/x").Addr)
	assert.Equal(t, "127.0.0.1:9000", NewOnlineProbe("http://127.0.0.1:9000").Addr)
	assert.Empty(t, NewOnlineProbe("not a url").Addr)
}

func TestOnlineProbe(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	assert.True(t, NewOnlineProbe(srv.URL).Online(t.Context()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	closed := ln.Addr().String()
	_ = ln.Close()
	assert.False(t, (&OnlineProbe{Addr: closed, Timeout: DefaultProbeTimeout}).Online(t.Context()))

	assert.True(t, (&OnlineProbe{}).Online(t.Context()))
}
