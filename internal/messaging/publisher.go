package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"ecosort-server/shared/interfaces"
	"ecosort-server/shared/models"
)

// rabbitMQPublisher реализует интерфейс ClientUpdatePublisher для RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// Compile-time check
var _ interfaces.ClientUpdatePublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQClientUpdatePublisher открывает канал и объявляет очередь
// client_updates. Паблишер объявляет очередь сам, чтобы порядок запуска
// сервисов не имел значения; параметры должны совпадать с консьюмером.
func NewRabbitMQClientUpdatePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (interfaces.ClientUpdatePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("client update publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("client update publisher: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("ClientUpdatePublisher"),
	}, nil
}

// PublishClientUpdate публикует снимок состояния сессии для клиента.
func (p *rabbitMQPublisher) PublishClientUpdate(ctx context.Context, payload models.ClientSessionUpdate) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal ClientSessionUpdate",
			zap.String("sessionID", payload.SessionID), zap.Error(err))
		return fmt.Errorf("failed to marshal client update: %w", err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		p.logger.Error("Failed to publish ClientSessionUpdate",
			zap.String("sessionID", payload.SessionID),
			zap.String("userID", payload.UserID), zap.Error(err))
		return fmt.Errorf("failed to publish client update for session %s: %w", payload.SessionID, err)
	}
	return nil
}

// publishMessage отправляет сообщение в default exchange с routing key
// равным имени очереди, до трех попыток.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "ecosort-server",
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.Int("attempt", attempt), zap.String("queue", p.queueName), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return err
}
