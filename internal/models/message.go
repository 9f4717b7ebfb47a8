package models

import "time"

/** --------------------ENTITIES-------------------- */

// ChatMessage is immutable once created. CreatedAt is server-assigned;
// per-room creation order matches the relay's broadcast order.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"index;not null" json:"room_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

/** -------------------- DTOs -------------------- */

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID        uint         `json:"id"`
	User      UserResponse `json:"user"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewMessageResponse(msg *ChatMessage, user *User) MessageResponse {
	resp := MessageResponse{
		ID:        msg.ID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if user != nil {
		resp.User = NewUserResponse(user)
	}
	return resp
}
