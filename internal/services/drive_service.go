package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"north-backend/internal/adapters/googleapi"
	"north-backend/internal/adapters/storage"
	"north-backend/internal/config"
	"north-backend/internal/models"
	"north-backend/internal/repositories/postgres"

	"google.golang.org/api/drive/v3"
	"gorm.io/gorm"
)

var (
	ErrDriveNotConnected = errors.New("google drive not connected")
	ErrFileNotFound      = errors.New("file not found")
)

const driveListFields = "nextPageToken, files(id, name, mimeType, size, createdTime, modifiedTime)"

// DriveService proxies Google Drive for authenticated users and mirrors
// file metadata into the local drive_files table.
type DriveService struct {
	users   postgres.UserRepository
	files   postgres.DriveFileRepository
	google  *googleapi.Client
	staging *storage.StagingStore
	cfg     *config.GoogleConfig
}

func NewDriveService(users postgres.UserRepository, files postgres.DriveFileRepository, google *googleapi.Client, staging *storage.StagingStore, cfg *config.GoogleConfig) *DriveService {
	return &DriveService{
		users:   users,
		files:   files,
		google:  google,
		staging: staging,
		cfg:     cfg,
	}
}

// driveFor builds a Drive client acting as the user, or reports
// ErrDriveNotConnected when no Google token is stored.
func (s *DriveService) driveFor(ctx context.Context, userID uint) (*drive.Service, error) {
	profile, err := s.users.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriveNotConnected
		}
		return nil, err
	}
	if profile.GoogleToken == "" {
		return nil, ErrDriveNotConnected
	}
	return s.google.Drive(ctx, profile.GoogleToken, profile.RefreshToken, profile.TokenExpiry)
}

// ListFiles lists the user's Drive files, refreshes the local mirror and
// returns the mirrored rows.
func (s *DriveService) ListFiles(ctx context.Context, userID uint) ([]*models.DriveFile, error) {
	items, err := s.listFromDrive(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		row := &models.DriveFile{
			UserID:   userID,
			FileID:   item.ID,
			Name:     item.Name,
			MimeType: item.MimeType,
			Size:     item.Size,
		}
		if err := s.files.Upsert(ctx, row); err != nil {
			return nil, fmt.Errorf("mirror drive file: %w", err)
		}
	}

	return s.files.ListByUser(ctx, userID)
}

// DirectList lists straight from Drive without touching the mirror.
func (s *DriveService) DirectList(ctx context.Context, userID uint) ([]models.DriveItem, error) {
	return s.listFromDrive(ctx, userID)
}

func (s *DriveService) listFromDrive(ctx context.Context, userID uint) ([]models.DriveItem, error) {
	svc, err := s.driveFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := svc.Files.List().
		Context(ctx).
		PageSize(100).
		Fields(driveListFields).
		Q("trashed=false").
		Do()
	if err != nil {
		return nil, fmt.Errorf("list drive files: %w", err)
	}

	items := make([]models.DriveItem, 0, len(result.Files))
	for _, f := range result.Files {
		items = append(items, models.DriveItem{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			Size:         f.Size,
			CreatedTime:  f.CreatedTime,
			ModifiedTime: f.ModifiedTime,
		})
	}
	return items, nil
}

// Upload pushes a file to the user's Drive and records it locally. When a
// staging store is configured the body is parked there first so the
// multipart stream is not held open across the Drive round trip.
func (s *DriveService) Upload(ctx context.Context, userID uint, name, contentType string, body io.Reader, size int64, folderID string) (*models.DriveFile, error) {
	svc, err := s.driveFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	media := body
	if s.staging != nil {
		key, err := s.staging.Stage(ctx, body, size, contentType)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := s.staging.Discard(ctx, key); err != nil {
				slog.Warn("failed to discard staged upload", "key", key, "error", err)
			}
		}()

		staged, err := s.staging.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		defer staged.Close()
		media = staged
	}

	meta := &drive.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	created, err := svc.Files.Create(meta).
		Context(ctx).
		Media(media).
		Fields("id, name, mimeType, size").
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload to drive: %w", err)
	}

	row := &models.DriveFile{
		UserID:   userID,
		FileID:   created.Id,
		Name:     created.Name,
		MimeType: created.MimeType,
		Size:     created.Size,
	}
	if err := s.files.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("record uploaded file: %w", err)
	}
	return row, nil
}

// Download streams a mirrored file's content from Drive.
func (s *DriveService) Download(ctx context.Context, userID, id uint) (io.ReadCloser, *models.DriveFile, error) {
	row, err := s.files.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}

	svc, err := s.driveFor(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	resp, err := svc.Files.Get(row.FileID).Context(ctx).Download()
	if err != nil {
		return nil, nil, fmt.Errorf("download from drive: %w", err)
	}
	return resp.Body, row, nil
}

// ImportFile mirrors a Drive file the user picked without transferring
// its content.
func (s *DriveService) ImportFile(ctx context.Context, userID uint, fileID string) (*models.DriveFile, error) {
	svc, err := s.driveFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	f, err := svc.Files.Get(fileID).Context(ctx).Fields("id, name, mimeType, size").Do()
	if err != nil {
		return nil, fmt.Errorf("fetch drive file metadata: %w", err)
	}

	row := &models.DriveFile{
		UserID:   userID,
		FileID:   f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
	if err := s.files.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("mirror imported file: %w", err)
	}
	return row, nil
}

// PickerConfig assembles the Google Picker bootstrap payload for the
// user's stored token.
func (s *DriveService) PickerConfig(ctx context.Context, userID uint) (*models.PickerConfigResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.users.FindProfile(ctx, userID)
	if err != nil || profile.GoogleToken == "" {
		return nil, ErrDriveNotConnected
	}

	return &models.PickerConfigResponse{
		APIKey:       s.cfg.ClientID,
		ClientID:     s.cfg.ClientID,
		DeveloperKey: s.cfg.DeveloperKey,
		AppID:        s.cfg.AppID,
		Token:        profile.GoogleToken,
		Scope:        s.cfg.Scopes,
		UserID:       user.Email,
	}, nil
}
