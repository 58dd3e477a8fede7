package alarm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/alarm"
)

// ErrNotFound is returned when the requested alarm does not exist.
var ErrNotFound = errors.New("alarm not found")

// Repository defines persistence operations for alarms.
//
// Update returns the stored state so callers can hand the fresh alarm to the
// scheduler explicitly. Scheduling is never triggered from inside the
// repository.
type Repository interface {
	Create(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error)
	GetByID(ctx context.Context, id uint) (*domain.Alarm, error)
	ListByGroup(ctx context.Context, groupID uint) ([]domain.Alarm, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Alarm, error)
	ListActive(ctx context.Context) ([]domain.Alarm, error)
	Update(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error)
	SetTaskHandle(ctx context.Context, id uint, handle string) error
	SetInactive(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// GormRepository persists alarms with gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates an alarm repository backed by the provided database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create stores a new alarm and returns it with its assigned ID.
func (r *GormRepository) Create(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("create alarm: %w", err)
	}

	return a, nil
}

// GetByID retrieves one alarm.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*domain.Alarm, error) {
	var a domain.Alarm
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("find alarm: %w", err)
	}

	return &a, nil
}

// ListByGroup retrieves the alarms of one schedule group, ordered by time of day.
func (r *GormRepository) ListByGroup(ctx context.Context, groupID uint) ([]domain.Alarm, error) {
	var alarms []domain.Alarm
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("time").
		Find(&alarms).Error
	if err != nil {
		return nil, fmt.Errorf("list alarms by group: %w", err)
	}

	return alarms, nil
}

// ListByUser retrieves every alarm whose owning module the user is a member of.
func (r *GormRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Alarm, error) {
	var alarms []domain.Alarm
	err := r.db.WithContext(ctx).
		Joins("JOIN schedule_groups ON schedule_groups.id = alarms.group_id").
		Joins("JOIN module_users ON module_users.module_id = schedule_groups.module_id").
		Where("module_users.user_id = ?", userID).
		Order("time").
		Find(&alarms).Error
	if err != nil {
		return nil, fmt.Errorf("list alarms by user: %w", err)
	}

	return alarms, nil
}

// ListActive retrieves every active alarm. Used by the due-alarm sweep.
func (r *GormRepository) ListActive(ctx context.Context) ([]domain.Alarm, error) {
	var alarms []domain.Alarm
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&alarms).Error; err != nil {
		return nil, fmt.Errorf("list active alarms: %w", err)
	}

	return alarms, nil
}

// Update stores the alarm's new field values and returns the stored state.
func (r *GormRepository) Update(ctx context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	// Select("*") so cleared booleans and empty labels are written too.
	result := r.db.WithContext(ctx).
		Model(&domain.Alarm{}).
		Where("id = ?", a.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(a)
	if err := result.Error; err != nil {
		return nil, fmt.Errorf("update alarm: %w", err)
	}

	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, a.ID)
}

// SetTaskHandle records the alarm's outstanding task queue handle.
// An empty handle clears the bookkeeping.
func (r *GormRepository) SetTaskHandle(ctx context.Context, id uint, handle string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Alarm{}).
		Where("id = ?", id).
		Update("task_handle", handle)
	if err := result.Error; err != nil {
		return fmt.Errorf("set task handle: %w", err)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetInactive marks the alarm inactive and clears its handle in one write.
// Used for one-shot completion after a fire.
func (r *GormRepository) SetInactive(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Alarm{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "task_handle": ""})
	if err := result.Error; err != nil {
		return fmt.Errorf("set alarm inactive: %w", err)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the alarm.
func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Alarm{}, id)
	if err := result.Error; err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
