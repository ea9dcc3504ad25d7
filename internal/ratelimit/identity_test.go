package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote_addr", "10.1.2.3:5555", nil, false, "10.1.2.3"},
		{"ipv6_remote", "[::1]:5555", nil, false, "::1"},
		{"headers_ignored_untrusted", "10.1.2.3:5555", map[string]string{"X-Forwarded-For": "1.1.1.1"}, false, "10.1.2.3"},
		{"xff_first", "10.1.2.3:5555", map[string]string{"X-Forwarded-For": " 1.1.1.1 , 2.2.2.2"}, true, "1.1.1.1"},
		{"cf_connecting_ip", "10.1.2.3:5555", map[string]string{"CF-Connecting-IP": "3.3.3.3"}, true, "3.3.3.3"},
		{"x_real_ip", "10.1.2.3:5555", map[string]string{"X-Real-IP": "4.4.4.4"}, true, "4.4.4.4"},
		{"no_port", "10.9.9.9", nil, false, "10.9.9.9"},
		{"empty", "", nil, false, "unknown"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/v1/generate", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}

			require.Equal(t, tc.want, ClientIP(r, tc.trustProxy))
		})
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/v1/generate", nil)
	r.RemoteAddr = "10.1.2.3:5555"

	require.Equal(t, "user:42", Identity("42", r, false))
	require.Equal(t, "ip:10.1.2.3", Identity("", r, false))
}
