package postgres

import (
	"context"

	"north-backend/internal/models"

	"gorm.io/gorm"
)

type RoomRepository interface {
	Create(ctx context.Context, room *models.ChatRoom) error
	FindByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	ListByParticipant(ctx context.Context, userID uint) ([]*models.ChatRoom, error)
	IsParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	AddParticipant(ctx context.Context, roomID, userID uint) error
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).Preload("Participants").First(&room, id).Error
	return &room, err
}

func (r *roomRepository) ListByParticipant(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN chat_room_participants p ON p.chat_room_id = chat_rooms.id").
		Where("p.user_id = ?", userID).
		Order("chat_rooms.created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("chat_room_participants").
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *roomRepository) AddParticipant(ctx context.Context, roomID, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatRoom{ID: roomID}).
		Association("Participants").
		Append(&models.User{ID: userID})
}
