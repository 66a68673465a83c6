package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type AlertMessage struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Level   string         `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SendAlertKafka publishes one alert notification. Callers treat failures as
// best-effort: the alert is already persisted before notification.
func SendAlertKafka(brokers []string, topic string, msg AlertMessage) error {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer w.Close()

	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(msg.Type), Value: value})
}
