package models

import "time"

/** --------------------ENTITIES-------------------- */

// DriveFile mirrors a Google Drive file known to one user. Drive remains
// the source of truth; rows are upserted whenever the proxy lists or
// imports files.
type DriveFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_drive_files_user_file;not null" json:"-"`
	FileID    string    `gorm:"uniqueIndex:idx_drive_files_user_file;size:100;not null" json:"file_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	MimeType  string    `gorm:"size:100" json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

/** -------------------- DTOs -------------------- */

type ImportFileRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

// DriveItem is a file listed straight from the Drive API, bypassing the
// local mirror.
type DriveItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size,omitempty"`
	CreatedTime  string `json:"createdTime,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}

type PickerConfigResponse struct {
	APIKey       string   `json:"apiKey"`
	ClientID     string   `json:"clientId"`
	DeveloperKey string   `json:"developerKey"`
	AppID        string   `json:"appId"`
	Token        string   `json:"token"`
	Scope        []string `json:"scope"`
	UserID       string   `json:"userId"`
}
