package outbox

import "example.com/freetime/internal/persistence"

const suggestionGeneratedSchema = `{
  "type": "object",
  "title": "SuggestionsGenerated",
  "properties": {
    "slot_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_ids": {"type": "array", "items": {"type": "string"}},
    "scores": {"type": "array", "items": {"type": "integer"}},
    "slot_start": {"type": "string", "format": "date-time"},
    "duration_min": {"type": "integer", "minimum": 1},
    "generated_at": {"type": "string", "format": "date-time"}
  },
  "required": ["slot_id", "tenant_id", "user_id", "activity_ids", "scores", "slot_start", "duration_min", "generated_at"],
  "additionalProperties": false
}`

const activityAdaptedSchema = `{
  "type": "object",
  "title": "ActivityAdapted",
  "properties": {
    "activity_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "original_duration_min": {"type": "integer"},
    "adapted_duration_min": {"type": "integer"},
    "reason": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "tenant_id", "user_id", "original_duration_min", "adapted_duration_min", "reason", "occurred_at"],
  "additionalProperties": false
}`

const freeTimeDetectedSchema = `{
  "type": "object",
  "title": "FreeTimeDetected",
  "properties": {
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "slot_ids": {"type": "array", "items": {"type": "string"}},
    "window_start": {"type": "string", "format": "date-time"},
    "window_end": {"type": "string", "format": "date-time"},
    "detected_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tenant_id", "user_id", "slot_ids", "window_start", "window_end", "detected_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps an event type to its JSON schema.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	persistence.EventSuggestionsGenerated: {Schema: suggestionGeneratedSchema},
	persistence.EventActivityAdapted:      {Schema: activityAdaptedSchema},
	persistence.EventFreeTimeDetected:     {Schema: freeTimeDetectedSchema},
}

// SchemaFor returns the registered schema for eventType.
func SchemaFor(eventType string) (string, bool) {
	entry, ok := schemaCatalog[eventType]
	return entry.Schema, ok
}
