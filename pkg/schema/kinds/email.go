package kinds

var emailKinds = map[string]string{
	"email.send": `{
		"type": "object",
		"properties": {
			"to": {"type": "array", "items": {"type": "string", "format": "email"}, "minItems": 1},
			"cc": {"type": "array", "items": {"type": "string", "format": "email"}},
			"subject": {"type": "string", "maxLength": 998},
			"body": {"type": "string"},
			"attachmentRefs": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["to", "subject", "body"],
		"additionalProperties": false
	}`,
	"email.draft": `{
		"type": "object",
		"properties": {
			"to": {"type": "array", "items": {"type": "string", "format": "email"}},
			"subject": {"type": "string"},
			"body": {"type": "string"}
		},
		"required": ["subject", "body"],
		"additionalProperties": false
	}`,
	"email.read": `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string"}
		},
		"required": ["messageId"],
		"additionalProperties": false
	}`,
	"email.search": `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1},
			"folder": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 500}
		},
		"required": ["query"],
		"additionalProperties": false
	}`,
	"email.delete": `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string"}
		},
		"required": ["messageId"],
		"additionalProperties": false
	}`,
	"email.move": `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string"},
			"targetFolder": {"type": "string"}
		},
		"required": ["messageId", "targetFolder"],
		"additionalProperties": false
	}`,
	"email.mark_read": `{
		"type": "object",
		"properties": {
			"messageId": {"type": "string"},
			"read": {"type": "boolean"}
		},
		"required": ["messageId", "read"],
		"additionalProperties": false
	}`,
}
