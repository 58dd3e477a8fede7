package device

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/device"
)

// ErrNotFound is returned when the requested module or group does not exist.
var ErrNotFound = errors.New("module not found")

// Repository defines persistence operations for modules and their satellites.
type Repository interface {
	GetModuleByID(ctx context.Context, id uint) (*domain.Module, error)
	GetModuleBySerial(ctx context.Context, serial string) (*domain.Module, error)
	GetGroup(ctx context.Context, id uint) (*domain.ScheduleGroup, error)
	SetModuleStatus(ctx context.Context, id uint, online bool) error
	SaveScheduleLog(ctx context.Context, log *domain.ScheduleLog) error
	UpsertSensorReading(ctx context.Context, moduleID uint, feature, data string) error
}

// GormRepository persists modules with gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a module repository backed by the provided database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// GetModuleByID retrieves one module with its users and pins preloaded.
func (r *GormRepository) GetModuleByID(ctx context.Context, id uint) (*domain.Module, error) {
	var m domain.Module
	err := r.db.WithContext(ctx).
		Preload("Users").
		Preload("Pins").
		First(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("find module: %w", err)
	}

	return &m, nil
}

// GetModuleBySerial retrieves one module by its public serial id,
// with users and pins preloaded.
func (r *GormRepository) GetModuleBySerial(ctx context.Context, serial string) (*domain.Module, error) {
	var m domain.Module
	err := r.db.WithContext(ctx).
		Preload("Users").
		Preload("Pins").
		Where("serial_id = ?", serial).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("find module by serial: %w", err)
	}

	return &m, nil
}

// GetGroup retrieves one schedule group with its pins preloaded.
func (r *GormRepository) GetGroup(ctx context.Context, id uint) (*domain.ScheduleGroup, error) {
	var g domain.ScheduleGroup
	err := r.db.WithContext(ctx).
		Preload("Pins").
		First(&g, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("find schedule group: %w", err)
	}

	return &g, nil
}

// SetModuleStatus records whether the device is currently connected.
func (r *GormRepository) SetModuleStatus(ctx context.Context, id uint, online bool) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Module{}).
		Where("id = ?", id).
		Update("status", online)
	if err := result.Error; err != nil {
		return fmt.Errorf("set module status: %w", err)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveScheduleLog appends a device-reported schedule execution record.
func (r *GormRepository) SaveScheduleLog(ctx context.Context, log *domain.ScheduleLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("save schedule log: %w", err)
	}

	return nil
}

// UpsertSensorReading stores the latest value of one module feature,
// inserting the row on first sight.
func (r *GormRepository) UpsertSensorReading(ctx context.Context, moduleID uint, feature, data string) error {
	reading := domain.SensorReading{
		ModuleID: moduleID,
		Feature:  feature,
		Data:     data,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "module_id"}, {Name: "feature"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "last_data"}),
		}).
		Create(&reading).Error
	if err != nil {
		return fmt.Errorf("upsert sensor reading: %w", err)
	}

	return nil
}
