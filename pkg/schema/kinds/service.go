package kinds

// serviceKinds holds the generic outbound-API-call kind used for
// connectors this gateway has no dedicated adapter for. The domain
// contacted is carried in payload.service and checked against the
// allowlist in pipeline stage 5.
var serviceKinds = map[string]string{
	"service.api_call": `{
		"type": "object",
		"properties": {
			"service": {"type": "string", "minLength": 1},
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
			"path": {"type": "string"},
			"body": {"type": "object"}
		},
		"required": ["service", "method"],
		"additionalProperties": false
	}`,
}
