package postgres

import (
	"context"
	"time"

	"north-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*models.User, error)
	ListExcept(ctx context.Context, userID uint) ([]*models.User, error)
	FindProfile(ctx context.Context, userID uint) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error
	return &user, err
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").First(&user, "email = ?", email).Error
	return &user, err
}

func (r *userRepository) GetOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where(models.User{Email: email}).
		Attrs(models.User{
			Username:  email,
			FirstName: firstName,
			LastName:  lastName,
		}).
		FirstOrCreate(&user).Error
	return &user, err
}

func (r *userRepository) ListExcept(ctx context.Context, userID uint) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).Where("id <> ?", userID).Find(&users).Error
	return users, err
}

func (r *userRepository) FindProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	return &profile, err
}

func (r *userRepository) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"google_token", "refresh_token", "token_expiry", "updated_at"}),
		}).
		Create(profile).Error
}
