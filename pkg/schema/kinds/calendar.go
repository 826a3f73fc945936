package kinds

var calendarKinds = map[string]string{
	"calendar.create_event": `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"start": {"type": "string", "format": "date-time"},
			"end": {"type": "string", "format": "date-time"},
			"attendees": {"type": "array", "items": {"type": "string", "format": "email"}},
			"location": {"type": "string"}
		},
		"required": ["title", "start", "end"],
		"additionalProperties": false
	}`,
	"calendar.update_event": `{
		"type": "object",
		"properties": {
			"eventId": {"type": "string"},
			"title": {"type": "string"},
			"start": {"type": "string", "format": "date-time"},
			"end": {"type": "string", "format": "date-time"}
		},
		"required": ["eventId"],
		"additionalProperties": false
	}`,
	"calendar.delete_event": `{
		"type": "object",
		"properties": {
			"eventId": {"type": "string"}
		},
		"required": ["eventId"],
		"additionalProperties": false
	}`,
	"calendar.list_events": `{
		"type": "object",
		"properties": {
			"since": {"type": "string", "format": "date-time"},
			"until": {"type": "string", "format": "date-time"}
		},
		"required": ["since", "until"],
		"additionalProperties": false
	}`,
	"calendar.respond_invite": `{
		"type": "object",
		"properties": {
			"eventId": {"type": "string"},
			"response": {"type": "string", "enum": ["accept", "decline", "tentative"]}
		},
		"required": ["eventId", "response"],
		"additionalProperties": false
	}`,
	"calendar.find_free_time": `{
		"type": "object",
		"properties": {
			"durationMinutes": {"type": "integer", "minimum": 5},
			"since": {"type": "string", "format": "date-time"},
			"until": {"type": "string", "format": "date-time"}
		},
		"required": ["durationMinutes", "since", "until"],
		"additionalProperties": false
	}`,
}
