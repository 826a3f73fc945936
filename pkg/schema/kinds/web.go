package kinds

var webKinds = map[string]string{
	"web.fetch": `{
		"type": "object",
		"properties": {
			"url": {"type": "string", "format": "uri"},
			"method": {"type": "string", "enum": ["GET", "POST"]},
			"headers": {"type": "object"},
			"body": {"type": "string"}
		},
		"required": ["url"],
		"additionalProperties": false
	}`,
	"web.search": `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1},
			"limit": {"type": "integer", "minimum": 1, "maximum": 50}
		},
		"required": ["query"],
		"additionalProperties": false
	}`,
	"web.screenshot": `{
		"type": "object",
		"properties": {
			"url": {"type": "string", "format": "uri"}
		},
		"required": ["url"],
		"additionalProperties": false
	}`,
	"web.download_file": `{
		"type": "object",
		"properties": {
			"url": {"type": "string", "format": "uri"},
			"maxBytes": {"type": "integer", "minimum": 1}
		},
		"required": ["url"],
		"additionalProperties": false
	}`,
}
