package kafka

import (
	"context"
	"encoding/json"
	"time"

	"north-backend/internal/relay"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "north-backend"

	return sarama.NewSyncProducer(brokers, config)
}

// MessageEvent is the JSON payload emitted for every persisted chat
// message. Keyed by room id so a room's events stay on one partition.
type MessageEvent struct {
	EventID   string    `json:"event_id"`
	MessageID uint      `json:"message_id"`
	RoomID    string    `json:"room_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// EventProducer publishes chat-message events to Kafka. It implements
// relay.EventSink; the relay treats failures as best-effort.
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventProducer(producer sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: producer, topic: topic}
}

func (p *EventProducer) MessageCreated(_ context.Context, msg *relay.Message, username string) error {
	event := MessageEvent{
		EventID:   uuid.New().String(),
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.RoomID),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

func (p *EventProducer) Close() error {
	return p.producer.Close()
}
