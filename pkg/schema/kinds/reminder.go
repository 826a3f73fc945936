package kinds

var reminderKinds = map[string]string{
	"reminder.create": `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"dueAt": {"type": "string", "format": "date-time"},
			"notes": {"type": "string"}
		},
		"required": ["title", "dueAt"],
		"additionalProperties": false
	}`,
	"reminder.update": `{
		"type": "object",
		"properties": {
			"reminderId": {"type": "string"},
			"title": {"type": "string"},
			"dueAt": {"type": "string", "format": "date-time"}
		},
		"required": ["reminderId"],
		"additionalProperties": false
	}`,
	"reminder.delete": `{
		"type": "object",
		"properties": {
			"reminderId": {"type": "string"}
		},
		"required": ["reminderId"],
		"additionalProperties": false
	}`,
	"reminder.list": `{
		"type": "object",
		"properties": {
			"includeCompleted": {"type": "boolean"}
		},
		"additionalProperties": false
	}`,
}
