package pkg

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		expected   string
	}{
		{name: "RemoteAddr", remoteAddr: "83.12.53.65:2145", expected: "83.12.53.65"},
		{name: "RemoteAddrIPv6", remoteAddr: "[::1]:8080", expected: "::1"},
		{name: "RemoteAddrNoPort", remoteAddr: "83.12.53.65", expected: "83.12.53.65"},
		{name: "RealIP", realIP: "111.12.56.65", remoteAddr: "172.20.0.1:60102", expected: "111.12.56.65"},
		{name: "Forwarded", forwarded: "111.12.56.65, 10.0.0.1", remoteAddr: "172.20.0.1:60102", expected: "111.12.56.65"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/getDates", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.realIP != "" {
				req.Header.Set("X-Real-Ip", tc.realIP)
			}
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.expected, ClientIP(req))
		})
	}
}
