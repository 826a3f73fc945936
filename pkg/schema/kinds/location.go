package kinds

var locationKinds = map[string]string{
	"location.get_current": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
	"location.share": `{
		"type": "object",
		"properties": {
			"withContactId": {"type": "string"},
			"durationMinutes": {"type": "integer", "minimum": 1}
		},
		"required": ["withContactId"],
		"additionalProperties": false
	}`,
}
