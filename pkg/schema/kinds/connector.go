package kinds

var connectorKinds = map[string]string{
	"connector.authorize": `{
		"type": "object",
		"properties": {
			"connectorName": {"type": "string", "minLength": 1},
			"scopes": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["connectorName"],
		"additionalProperties": false
	}`,
	"connector.refresh_token": `{
		"type": "object",
		"properties": {
			"connectorName": {"type": "string", "minLength": 1}
		},
		"required": ["connectorName"],
		"additionalProperties": false
	}`,
	"connector.revoke": `{
		"type": "object",
		"properties": {
			"connectorName": {"type": "string", "minLength": 1}
		},
		"required": ["connectorName"],
		"additionalProperties": false
	}`,
	"connector.list_connections": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
}
