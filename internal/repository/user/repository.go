package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/scituinsk/BE-Smart-Farming/internal/domain/user"
)

// ErrNotFound is returned when the requested account does not exist.
var ErrNotFound = errors.New("user not found")

// Repository defines persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// GormRepository persists accounts with gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a user repository backed by the provided database.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create stores a new account.
func (r *GormRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID retrieves one account.
func (r *GormRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("find user: %w", err)
	}

	return &u, nil
}

// GetByUsername retrieves one account by its login name.
func (r *GormRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("find user by username: %w", err)
	}

	return &u, nil
}
