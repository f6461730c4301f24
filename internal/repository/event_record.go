package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/tracing"
)

type EventRecordRepository interface {
	Create(ctx context.Context, record *models.EventRecord) error
	CountByEvent(ctx context.Context, event string) (int64, error)
}

type eventRecordRepository struct {
	db *gorm.DB
}

func NewEventRecordRepository(db *gorm.DB) EventRecordRepository {
	return &eventRecordRepository{
		db: db,
	}
}

func (r *eventRecordRepository) Create(ctx context.Context, record *models.EventRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EventRecordRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEvent(span, record.Event)

	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}
	span.LogKV("result.id", record.ID)
	return nil
}

func (r *eventRecordRepository) CountByEvent(ctx context.Context, event string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EventRecordRepository.CountByEvent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEvent(span, event)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventRecord{}).Where("event = ?", event).Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return 0, err
	}
	return count, nil
}
