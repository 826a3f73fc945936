package kinds

var voiceKinds = map[string]string{
	"voice.transcribe": `{
		"type": "object",
		"properties": {
			"audioRef": {"type": "string", "minLength": 1}
		},
		"required": ["audioRef"],
		"additionalProperties": false
	}`,
	"voice.synthesize": `{
		"type": "object",
		"properties": {
			"text": {"type": "string", "minLength": 1},
			"voiceId": {"type": "string"}
		},
		"required": ["text"],
		"additionalProperties": false
	}`,
	"voice.list_voices": `{
		"type": "object",
		"properties": {},
		"additionalProperties": false
	}`,
}
