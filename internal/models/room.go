package models

import "time"

/** --------------------ENTITIES-------------------- */

// ChatRoom groups users; membership here is the durable participant list,
// distinct from the transient live-connection registry held by the relay.
type ChatRoom struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	Participants []User    `gorm:"many2many:chat_room_participants;" json:"participants"`
}

/** -------------------- DTOs -------------------- */

type CreateRoomRequest struct {
	Name           string `json:"name" binding:"required"`
	ParticipantIDs []uint `json:"participant_ids" binding:"required"`
}

type RoomResponse struct {
	ID           uint              `json:"id"`
	Name         string            `json:"name"`
	Participants []UserResponse    `json:"participants"`
	Messages     []MessageResponse `json:"messages,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func NewRoomResponse(room *ChatRoom, messages []MessageResponse) RoomResponse {
	participants := make([]UserResponse, 0, len(room.Participants))
	for i := range room.Participants {
		participants = append(participants, NewUserResponse(&room.Participants[i]))
	}
	return RoomResponse{
		ID:           room.ID,
		Name:         room.Name,
		Participants: participants,
		Messages:     messages,
		CreatedAt:    room.CreatedAt,
	}
}
