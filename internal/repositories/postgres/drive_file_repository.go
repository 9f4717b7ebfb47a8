package postgres

import (
	"context"
	"time"

	"north-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DriveFileRepository interface {
	Upsert(ctx context.Context, file *models.DriveFile) error
	FindByID(ctx context.Context, id, userID uint) (*models.DriveFile, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.DriveFile, error)
}

type driveFileRepository struct {
	db *gorm.DB
}

func NewDriveFileRepository(db *gorm.DB) DriveFileRepository {
	return &driveFileRepository{db: db}
}

// Upsert inserts or refreshes the row keyed by (user_id, file_id).
func (r *driveFileRepository) Upsert(ctx context.Context, file *models.DriveFile) error {
	file.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "mime_type", "size", "updated_at"}),
		}).
		Create(file).Error
}

func (r *driveFileRepository) FindByID(ctx context.Context, id, userID uint) (*models.DriveFile, error) {
	var file models.DriveFile
	err := r.db.WithContext(ctx).First(&file, "id = ? AND user_id = ?", id, userID).Error
	return &file, err
}

func (r *driveFileRepository) ListByUser(ctx context.Context, userID uint) ([]*models.DriveFile, error) {
	var files []*models.DriveFile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&files).Error
	return files, err
}
