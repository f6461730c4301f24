package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/metricsrelay/internal/utils"
)

// EventRecord is the warehouse row written for every relayed event.
type EventRecord struct {
	ID         string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	RequestID  string    `gorm:"column:request_id;type:varchar(50);index" json:"requestId"`
	Event      string    `gorm:"column:event;type:varchar(255);index" json:"event"`
	Method     string    `gorm:"column:method;type:varchar(32)" json:"method"`
	Path       string    `gorm:"column:path;type:text" json:"path"`
	AppID      string    `gorm:"column:app_id;type:varchar(255);index" json:"appId"`
	DistinctID string    `gorm:"column:distinct_id;type:varchar(255);index" json:"distinctId"`
	Properties JSONMap   `gorm:"column:properties;type:jsonb" json:"properties"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp;index" json:"createdAt"`
}

func (EventRecord) TableName() string {
	return "event_records"
}

func (m *EventRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("evt", 21)
	}
	return nil
}
