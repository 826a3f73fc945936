package kinds

var modelKinds = map[string]string{
	"model.download": `{
		"type": "object",
		"properties": {
			"modelId": {"type": "string", "minLength": 1},
			"sourceHost": {"type": "string", "minLength": 1}
		},
		"required": ["modelId", "sourceHost"],
		"additionalProperties": false
	}`,
	"model.list": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
	"model.delete": `{
		"type": "object",
		"properties": {
			"modelId": {"type": "string", "minLength": 1}
		},
		"required": ["modelId"],
		"additionalProperties": false
	}`,
	"model.get_info": `{
		"type": "object",
		"properties": {
			"modelId": {"type": "string", "minLength": 1}
		},
		"required": ["modelId"],
		"additionalProperties": false
	}`,
}
