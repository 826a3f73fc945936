package kinds

var messagingKinds = map[string]string{
	"messaging.send": `{
		"type": "object",
		"properties": {
			"to": {"type": "string", "minLength": 1},
			"body": {"type": "string", "minLength": 1}
		},
		"required": ["to", "body"],
		"additionalProperties": false
	}`,
	"messaging.read": `{
		"type": "object",
		"properties": {
			"threadId": {"type": "string"}
		},
		"required": ["threadId"],
		"additionalProperties": false
	}`,
	"messaging.search": `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1}
		},
		"required": ["query"],
		"additionalProperties": false
	}`,
	"messaging.delete": `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string"}
		},
		"required": ["messageId"],
		"additionalProperties": false
	}`,
}
