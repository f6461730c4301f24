package dto

// MetricsEvent is the track payload accepted by the analytics backend.
type MetricsEvent struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// ProfileUpdate is the engage payload used to set profile properties.
type ProfileUpdate struct {
	Token      string         `json:"$token"`
	DistinctId string         `json:"$distinct_id"`
	Set        map[string]any `json:"$set"`
}

// ProfileResponse is returned by the profile service.
type ProfileResponse struct {
	UserId        string         `json:"userId"`
	KeyValuePairs []KeyValuePair `json:"keyValuePairs"`
}

type KeyValuePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Get returns the value for key, or "" when the profile does not carry it.
func (p ProfileResponse) Get(key string) string {
	for _, kv := range p.KeyValuePairs {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}
