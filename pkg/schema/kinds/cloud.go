package kinds

var cloudKinds = map[string]string{
	"cloud.save": `{
		"type": "object",
		"properties": {
			"bucket": {"type": "string", "minLength": 1},
			"key": {"type": "string", "minLength": 1},
			"contentRef": {"type": "string", "minLength": 1}
		},
		"required": ["bucket", "key", "contentRef"],
		"additionalProperties": false
	}`,
	"cloud.load": `{
		"type": "object",
		"properties": {
			"bucket": {"type": "string", "minLength": 1},
			"key": {"type": "string", "minLength": 1}
		},
		"required": ["bucket", "key"],
		"additionalProperties": false
	}`,
	"cloud.delete": `{
		"type": "object",
		"properties": {
			"bucket": {"type": "string", "minLength": 1},
			"key": {"type": "string", "minLength": 1}
		},
		"required": ["bucket", "key"],
		"additionalProperties": false
	}`,
	"cloud.list": `{
		"type": "object",
		"properties": {
			"bucket": {"type": "string", "minLength": 1},
			"prefix": {"type": "string"}
		},
		"required": ["bucket"],
		"additionalProperties": false
	}`,
}
