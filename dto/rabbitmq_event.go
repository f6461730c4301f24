package dto

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	EntityId  string      `json:"entityId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	RequestId   string `json:"requestId"`
	UserId      string `json:"userId"`
	Timestamp   string `json:"timestamp"`
}

// FlagCryptominer asks for a subject to be marked as a cryptominer in the analytics backend.
type FlagCryptominer struct {
	UserSubjectId string `json:"userSubjectId"`
	Cryptominer   bool   `json:"cryptominer"`
}
