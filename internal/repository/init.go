package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/metricsrelay/config"
	"github.com/customeros/metricsrelay/internal/models"
)

type Repositories struct {
	EventRecordRepository EventRecordRepository
}

func InitRepositories(warehouseDB *gorm.DB) *Repositories {
	return &Repositories{
		EventRecordRepository: NewEventRecordRepository(warehouseDB),
	}
}

func MigrateWarehouseDB(dbConfig *config.WarehouseDatabaseConfig, warehouseDB *gorm.DB) error {
	db, err := warehouseDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = warehouseDB.AutoMigrate(
		&models.EventRecord{},
	)

	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
