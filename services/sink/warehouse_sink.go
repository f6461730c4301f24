package sink

import (
	"context"

	"github.com/pkg/errors"

	"github.com/customeros/metricsrelay/dto"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/repository"
	"github.com/customeros/metricsrelay/internal/utils"
)

const profileUpdateEvent = "$engage"

type warehouseSink struct {
	repository repository.EventRecordRepository
}

// NewWarehouseSink stores one row per record in the warehouse database.
func NewWarehouseSink(repository repository.EventRecordRepository) interfaces.LogSink {
	return &warehouseSink{repository: repository}
}

func (s *warehouseSink) Name() string {
	return NameWarehouse
}

func (s *warehouseSink) Write(ctx context.Context, record dto.LogRecord) error {
	row := NewEventRecord(ctx, record)
	if err := s.repository.Create(ctx, row); err != nil {
		return errors.Wrap(err, "insert event record")
	}
	return nil
}

func (s *warehouseSink) Close() error {
	return nil
}

// NewEventRecord maps a log record and the request context onto a warehouse row.
func NewEventRecord(ctx context.Context, record dto.LogRecord) *models.EventRecord {
	event := record.EventName()
	if event == "" && record.IsProfileUpdate() {
		event = profileUpdateEvent
	}
	requestId := record.StringProperty(dto.InternalPropertyRequestId)
	if requestId == "" {
		requestId = utils.GetRequestIdFromContext(ctx)
	}
	return &models.EventRecord{
		RequestID:  requestId,
		Event:      event,
		Method:     utils.GetMethodFromContext(ctx),
		Path:       utils.GetPathFromContext(ctx),
		AppID:      record.StringProperty("appId"),
		DistinctID: record.DistinctID(),
		Properties: models.JSONMap(record),
		CreatedAt:  utils.Now(),
	}
}
