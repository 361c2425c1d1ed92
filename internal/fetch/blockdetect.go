package fetch

import (
	"net/http"
	"strings"
)

// BlockType names the likely reason a direct fetch was refused. It only
// annotates the failure that sends a request to the proxy.
type BlockType string

const (
	BlockNone        BlockType = ""
	BlockCloudflare  BlockType = "cloudflare"
	BlockBotManager  BlockType = "bot_manager"
	BlockCaptcha     BlockType = "captcha"
	BlockAuth        BlockType = "auth"
	BlockMaintenance BlockType = "maintenance"
)

// botManagerHeaders are response headers set by commercial bot-mitigation
// services other than Cloudflare.
var botManagerHeaders = []string{"x-datadome", "x-sucuri-id", "x-px-block", "x-akamai-edgescape"}

// classifyRefusal explains a 401/403/503 direct response. Other statuses
// are not refusals and return BlockNone.
func classifyRefusal(status int, h http.Header, body []byte) BlockType {
	switch status {
	case http.StatusUnauthorized:
		if h.Get("WWW-Authenticate") != "" {
			return BlockAuth
		}
	case http.StatusForbidden, http.StatusServiceUnavailable:
	default:
		return BlockNone
	}

	if h.Get("cf-ray") != "" || h.Get("cf-mitigated") != "" || strings.EqualFold(h.Get("Server"), "cloudflare") {
		return BlockCloudflare
	}
	for _, name := range botManagerHeaders {
		if h.Get(name) != "" {
			return BlockBotManager
		}
	}
	if strings.HasPrefix(strings.ToLower(h.Get("Server")), "akamaighost") {
		return BlockBotManager
	}

	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "are you a robot") {
		return BlockCaptcha
	}
	if status == http.StatusServiceUnavailable && h.Get("Retry-After") != "" {
		return BlockMaintenance
	}
	return BlockNone
}
