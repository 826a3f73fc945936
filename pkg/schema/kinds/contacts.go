package kinds

var contactsKinds = map[string]string{
	"contacts.create": `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"email": {"type": "string", "format": "email"},
			"phone": {"type": "string"}
		},
		"required": ["name"],
		"additionalProperties": false
	}`,
	"contacts.update": `{
		"type": "object",
		"properties": {
			"contactId": {"type": "string"},
			"name": {"type": "string"},
			"email": {"type": "string", "format": "email"},
			"phone": {"type": "string"}
		},
		"required": ["contactId"],
		"additionalProperties": false
	}`,
	"contacts.delete": `{
		"type": "object",
		"properties": {
			"contactId": {"type": "string"}
		},
		"required": ["contactId"],
		"additionalProperties": false
	}`,
	"contacts.search": `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1}
		},
		"required": ["query"],
		"additionalProperties": false
	}`,
	"contacts.get": `{
		"type": "object",
		"properties": {
			"contactId": {"type": "string"}
		},
		"required": ["contactId"],
		"additionalProperties": false
	}`,
}
