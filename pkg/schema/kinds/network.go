package kinds

var networkKinds = map[string]string{
	"network.get_status": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
	"network.set_proxy": `{
		"type": "object",
		"properties": {
			"host": {"type": "string", "minLength": 1},
			"port": {"type": "integer", "minimum": 1, "maximum": 65535}
		},
		"required": ["host", "port"],
		"additionalProperties": false
	}`,
	"network.list_interfaces": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
}
