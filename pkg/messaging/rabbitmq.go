package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nao1215/learnhub/pkg/event"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// publishTimeout は1件の発行にかける上限時間。
const publishTimeout = 5 * time.Second

// RabbitPublisher はRabbitMQのトピックExchangeへイベントを発行する。
// ルーティングキーは event.Event.RoutingKey。
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewRabbitPublisher はRabbitMQに接続し、永続的なトピックExchangeを宣言する。
func NewRabbitPublisher(url, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQへの接続に失敗: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネルのオープンに失敗: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("Exchangeの宣言に失敗: %w", err)
	}

	log.Info().Str("exchange", exchange).Msg("connected to RabbitMQ")

	return &RabbitPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      log,
	}, nil
}

// Publish はイベントをJSONにシリアライズして永続メッセージとして発行する。
func (p *RabbitPublisher) Publish(ctx context.Context, e *event.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		publishCtx,
		p.exchange,
		e.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.CreatedAt,
			Type:         string(e.EventType),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("イベントの発行に失敗: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる。
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.log.Warn().Err(err).Msg("failed to close RabbitMQ channel")
	}
	return p.conn.Close()
}

// New はurlが空ならLogPublisher、そうでなければRabbitPublisherを返す。
func New(url, exchange string, log zerolog.Logger) (Publisher, error) {
	if url == "" {
		return NewLogPublisher(log), nil
	}
	return NewRabbitPublisher(url, exchange, log)
}
