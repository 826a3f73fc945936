// Package kinds enumerates the JSON Schema for every action kind the
// gateway recognizes, organized one file per family for reviewability.
// All() aggregates them for schema.Registry.LoadAll.
package kinds

// All returns every registered action kind mapped to its JSON Schema
// source (Draft 2020-12, additionalProperties: false).
func All() map[string]string {
	out := make(map[string]string, 64)
	merge(out, emailKinds)
	merge(out, calendarKinds)
	merge(out, financeKinds)
	merge(out, webKinds)
	merge(out, reminderKinds)
	merge(out, contactsKinds)
	merge(out, messagingKinds)
	merge(out, clipboardKinds)
	merge(out, locationKinds)
	merge(out, voiceKinds)
	merge(out, cloudKinds)
	merge(out, connectorKinds)
	merge(out, importKinds)
	merge(out, modelKinds)
	merge(out, networkKinds)
	merge(out, serviceKinds)
	return out
}

func merge(dst map[string]string, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
