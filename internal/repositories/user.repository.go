package repositories

import (
	"context"
	"errors"

	"eyeshield/internal/database"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/services"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *UserAccount) error
	GetByUsername(ctx context.Context, username string) (*UserAccount, error)
	GetAll(ctx context.Context) ([]UserAccount, error)
	UpdateRole(ctx context.Context, username string, role Role) error
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
	Delete(ctx context.Context, username string) error
}

type userRepository struct {
	db  database.DB
	log logger.Logger
}

func NewUser(db database.DB) UserRepository {
	return &userRepository{
		db:  db,
		log: logger.New("userRepository"),
	}
}

func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *userRepository) Create(ctx context.Context, user *UserAccount) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return log.Err("failed to create user", err, "username", user.Username)
	}

	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*UserAccount, error) {
	log := r.log.Function("GetByUsername")

	var user UserAccount
	if err := r.getDB(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, log.Err("failed to get user", err, "username", username)
	}

	return &user, nil
}

func (r *userRepository) GetAll(ctx context.Context) ([]UserAccount, error) {
	log := r.log.Function("GetAll")

	var users []UserAccount
	if err := r.getDB(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, log.Err("failed to get users", err)
	}

	return users, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, username string, role Role) error {
	log := r.log.Function("UpdateRole")

	result := r.getDB(ctx).Model(&UserAccount{}).Where("username = ?", username).Update("role", role)
	if result.Error != nil {
		return log.Err("failed to update role", result.Error, "username", username, "role", role)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	log := r.log.Function("UpdatePasswordHash")

	result := r.getDB(ctx).Model(&UserAccount{}).
		Where("username = ?", username).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return log.Err("failed to update password", result.Error, "username", username)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *userRepository) Delete(ctx context.Context, username string) error {
	log := r.log.Function("Delete")

	result := r.getDB(ctx).Where("username = ?", username).Delete(&UserAccount{})
	if result.Error != nil {
		return log.Err("failed to delete user", result.Error, "username", username)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	log.Info("deleted user", "username", username)
	return nil
}
