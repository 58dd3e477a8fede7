package repository

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	alarmdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"
	"github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
	userdomain "github.com/scituinsk/BE-Smart-Farming/internal/domain/user"
)

// Open opens the SQLite database at the provided path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&userdomain.User{},
		&device.Module{},
		&device.Pin{},
		&device.ScheduleGroup{},
		&device.ScheduleLog{},
		&device.SensorReading{},
		&alarmdomain.Alarm{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}
