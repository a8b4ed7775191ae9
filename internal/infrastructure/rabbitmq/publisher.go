package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/application"
	"github.com/sanosuguru/lecoup2plus-reservation/internal/config"
)

const (
	dialTimeout = 5 * time.Second
	heartbeat   = 10 * time.Second
)

// Publisher は座席保存イベントをRabbitMQのキューへ送る
// 保存頻度が低いため、送信ごとに接続してすぐ閉じる
type Publisher struct {
	url   string
	queue string
	dial  func(ctx context.Context, url string) (*amqp.Connection, error)
}

// NewPublisher は Publisher を作成する
func NewPublisher(cfg *config.AMQPConfig) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.Queue, dial: dialContext}
}

// PublishSeatsSaved はイベントを永続メッセージとして送信する
func (p *Publisher) PublishSeatsSaved(ctx context.Context, event application.SeatsSavedEvent) error {
	msg, err := newPublishing(event, time.Now())
	if err != nil {
		return err
	}

	conn, err := p.dial(ctx, p.url)
	if err != nil {
		return fmt.Errorf("RabbitMQ接続に失敗: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("キュー宣言に失敗: %w", err)
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("メッセージ送信に失敗: %w", err)
	}
	return nil
}

// dialContext は ctx の期限とdialTimeoutの早い方までに接続とハンドシェイクを終える
// 期限はハンドシェイク完了時にライブラリ側で解除される
func dialContext(ctx context.Context, url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()

			var d net.Dialer
			conn, err := d.DialContext(dialCtx, network, addr)
			if err != nil {
				return nil, err
			}
			deadline, _ := dialCtx.Deadline()
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func newPublishing(event application.SeatsSavedEvent, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("イベントのエンコードに失敗: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Type:         "seats.saved",
		Body:         body,
	}, nil
}

var _ application.SaveNotifier = (*Publisher)(nil)
