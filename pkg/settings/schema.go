package settings

// propertySettingsSchema constrains the property settings document before it is persisted.
const propertySettingsSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"renewals": {
			"type": "object",
			"properties": {
				"renewalCycleStart": {"type": "integer", "minimum": 0, "maximum": 365},
				"skipOriginalGuarantors": {"type": "boolean"}
			}
		},
		"integration": {
			"type": "object",
			"properties": {
				"residentDataImport": {"type": "boolean"}
			}
		},
		"moveIn": {
			"type": "object",
			"properties": {
				"confirmationGraceDays": {"type": "integer", "minimum": 0, "maximum": 120}
			}
		}
	}
}`
