package dto

import (
	"encoding/json"
)

const (
	InternalPropertyUserSubjectId = "user_subject_id"
	InternalPropertyRequestId     = "request_id"
)

// LogRecord is what the log sinks persist. Properties carries internal keys that are
// never forwarded to the analytics backend.
type LogRecord map[string]any

// NewLogRecord copies payload into a record and merges internal into its properties.
// The analytics token is stripped from the copy.
func NewLogRecord(payload any, internal map[string]any) (LogRecord, error) {
	record := LogRecord{}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}

	// the analytics api token is never persisted
	delete(record, "$token")

	properties, _ := record["properties"].(map[string]any)
	if properties == nil {
		properties = map[string]any{}
	}
	delete(properties, "token")
	for k, v := range internal {
		if v == nil || v == "" {
			continue
		}
		properties[k] = v
	}
	record["properties"] = properties
	return record, nil
}

func (r LogRecord) EventName() string {
	name, _ := r["event"].(string)
	return name
}

func (r LogRecord) Properties() map[string]any {
	properties, _ := r["properties"].(map[string]any)
	return properties
}

// StringProperty returns a string property or "" when absent or not a string.
func (r LogRecord) StringProperty(key string) string {
	value, _ := r.Properties()[key].(string)
	return value
}

// DistinctID returns the analytics identifier the record is attributed to.
func (r LogRecord) DistinctID() string {
	for _, key := range []string{"distinct_id", "$identified_id"} {
		if id := r.StringProperty(key); id != "" {
			return id
		}
	}
	id, _ := r["$distinct_id"].(string)
	return id
}

// IsProfileUpdate is true for records built from a profile update rather than an event.
func (r LogRecord) IsProfileUpdate() bool {
	_, ok := r["$set"]
	return ok
}

// InternalProperties are the log only properties merged into every record. Empty values are skipped.
func InternalProperties(userSubjectId, requestId string) map[string]any {
	return map[string]any{
		InternalPropertyUserSubjectId: userSubjectId,
		InternalPropertyRequestId:     requestId,
	}
}
