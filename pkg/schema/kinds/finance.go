package kinds

var financeKinds = map[string]string{
	"finance.get_balance": `{
		"type": "object",
		"properties": {
			"accountId": {"type": "string"}
		},
		"required": ["accountId"],
		"additionalProperties": false
	}`,
	"finance.list_transactions": `{
		"type": "object",
		"properties": {
			"accountId": {"type": "string"},
			"since": {"type": "string", "format": "date-time"},
			"until": {"type": "string", "format": "date-time"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 1000}
		},
		"required": ["accountId"],
		"additionalProperties": false
	}`,
	"finance.transfer": `{
		"type": "object",
		"properties": {
			"fromAccountId": {"type": "string"},
			"toAccountId": {"type": "string"},
			"amountCents": {"type": "integer", "minimum": 1},
			"currency": {"type": "string", "minLength": 3, "maxLength": 3}
		},
		"required": ["fromAccountId", "toAccountId", "amountCents", "currency"],
		"additionalProperties": false
	}`,
	"finance.pay_bill": `{
		"type": "object",
		"properties": {
			"accountId": {"type": "string"},
			"payeeId": {"type": "string"},
			"amountCents": {"type": "integer", "minimum": 1}
		},
		"required": ["accountId", "payeeId", "amountCents"],
		"additionalProperties": false
	}`,
	"finance.get_budget_status": `{
		"type": "object",
		"properties": {
			"budgetId": {"type": "string"}
		},
		"required": ["budgetId"],
		"additionalProperties": false
	}`,
}
