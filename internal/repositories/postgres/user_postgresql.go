package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/models"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, student *models.Student) error {
	db := u.getDB(tx)
	return db.WithContext(ctx).Create(student).Error
}

func (u *UserPostgreSQL) GetByUID(ctx context.Context, tx *gorm.DB, uid string) (*models.Student, error) {
	db := u.getDB(tx)

	var student models.Student
	err := db.WithContext(ctx).Where("uid = ?", uid).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Student, error) {
	db := u.getDB(tx)

	var student models.Student
	err := db.WithContext(ctx).Where("email = ?", email).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (u *UserPostgreSQL) UpdatePassword(ctx context.Context, tx *gorm.DB, uid string, passwordHash string) error {
	db := u.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.Student{}).
		Where("uid = ?", uid).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (u *UserPostgreSQL) UpdatePhotoURL(ctx context.Context, tx *gorm.DB, uid string, photoURL string) error {
	db := u.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.Student{}).
		Where("uid = ?", uid).
		Update("photo_url", photoURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	db := u.getDB(tx)

	var count int64
	err := db.WithContext(ctx).
		Model(&models.Student{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}
