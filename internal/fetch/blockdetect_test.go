package fetch

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRefusal(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare ray", http.StatusForbidden, http.Header{"Cf-Ray": {"abc123"}}, "", BlockCloudflare},
		{"cloudflare server", http.StatusServiceUnavailable, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"datadome", http.StatusForbidden, http.Header{"X-Datadome": {"protected"}}, "", BlockBotManager},
		{"akamai", http.StatusForbidden, http.Header{"Server": {"AkamaiGHost"}}, "Access Denied", BlockBotManager},
		{"captcha page", http.StatusForbidden, http.Header{}, "<p>Please complete the reCAPTCHA</p>", BlockCaptcha},
		{"basic auth", http.StatusUnauthorized, http.Header{"Www-Authenticate": {`Basic realm="x"`}}, "", BlockAuth},
		{"bare 401", http.StatusUnauthorized, http.Header{}, "", BlockNone},
		{"maintenance", http.StatusServiceUnavailable, http.Header{"Retry-After": {"120"}}, "Down for maintenance", BlockMaintenance},
		{"plain 403", http.StatusForbidden, http.Header{}, "Forbidden", BlockNone},
		{"200 with captcha text is not a refusal", http.StatusOK, http.Header{"Cf-Ray": {"x"}}, "captcha", BlockNone},
		{"404", http.StatusNotFound, http.Header{}, "", BlockNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRefusal(tt.status, tt.header, []byte(tt.body)))
		})
	}
}
