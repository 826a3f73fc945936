package kinds

var clipboardKinds = map[string]string{
	"clipboard.read": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
	"clipboard.write": `{
		"type": "object",
		"properties": {
			"text": {"type": "string"}
		},
		"required": ["text"],
		"additionalProperties": false
	}`,
}
