package pipeline

import "net/url"

// targetDomain derives the external domain a request is aimed at, for
// the allowlist stage. Action kinds with no outward target (reminders,
// contacts, clipboard, and similar local-only kinds) return "", which
// the pipeline treats as "skip the allowlist stage".
func targetDomain(action string, payload map[string]interface{}) string {
	switch action {
	case "service.api_call":
		return stringField(payload, "service")
	case "cloud.save", "cloud.load", "cloud.delete", "cloud.list":
		return stringField(payload, "bucket")
	case "connector.authorize", "connector.refresh_token", "connector.revoke":
		return stringField(payload, "connectorName")
	case "model.download":
		return stringField(payload, "sourceHost")
	case "web.fetch", "web.screenshot", "web.download_file":
		return hostOf(stringField(payload, "url"))
	default:
		return ""
	}
}

func stringField(payload map[string]interface{}, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
