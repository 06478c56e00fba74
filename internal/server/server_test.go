package server

import (
	"context"
	"net/http"
	"testing"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"8080":  ":8080",
		":9090": ":9090",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	var s Server
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := s.Run("0", http.NotFoundHandler()); err != nil {
		t.Fatalf("Run after Shutdown: %v", err)
	}
}

func TestNewHTTPServerLimits(t *testing.T) {
	srv := newHTTPServer(":0", http.NotFoundHandler())
	if srv.ReadHeaderTimeout != readHeaderTimeout || srv.MaxHeaderBytes != maxHeaderBytes {
		t.Fatalf("unexpected server config: %+v", srv)
	}
}
