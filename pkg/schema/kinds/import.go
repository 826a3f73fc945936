package kinds

var importKinds = map[string]string{
	"import.file": `{
		"type": "object",
		"properties": {
			"sourceRef": {"type": "string", "minLength": 1},
			"mimeType": {"type": "string"}
		},
		"required": ["sourceRef"],
		"additionalProperties": false
	}`,
	"import.contacts": `{
		"type": "object",
		"properties": {
			"sourceRef": {"type": "string", "minLength": 1}
		},
		"required": ["sourceRef"],
		"additionalProperties": false
	}`,
	"import.calendar": `{
		"type": "object",
		"properties": {
			"sourceRef": {"type": "string", "minLength": 1}
		},
		"required": ["sourceRef"],
		"additionalProperties": false
	}`,
	"import.email": `{
		"type": "object",
		"properties": {
			"sourceRef": {"type": "string", "minLength": 1}
		},
		"required": ["sourceRef"],
		"additionalProperties": false
	}`,
}
