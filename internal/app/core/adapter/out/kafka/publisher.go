package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
)

//go:generate mockgen -source=publisher.go -destination=mock_writer.go -package=kafka

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_kafka_events_published_total",
		Help: "Total number of ledger events written to Kafka",
	})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_kafka_publish_errors_total",
		Help: "Total number of failed Kafka publish batches",
	})
)

// Writer Kafka writer 抽象，方便測試替換
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Event 送到 Kafka 的交易事件
type Event struct {
	TransactionID  string    `json:"transaction_id"`
	Sequence       uint64    `json:"sequence"`
	AccountID      int64     `json:"account_id"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	BalanceAfter   string    `json:"balance_after"`
	Note           string    `json:"note,omitempty"`
	RelatedAccount string    `json:"related_account,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewEvent 由交易紀錄產生事件
func NewEvent(tx domain.Transaction) Event {
	return Event{
		TransactionID:  tx.ID.String(),
		Sequence:       tx.Sequence,
		AccountID:      tx.AccountID,
		Type:           tx.Type.String(),
		Amount:         tx.Amount.StringFixed(domain.AmountScale),
		BalanceAfter:   tx.BalanceAfter.StringFixed(domain.AmountScale),
		Note:           tx.Note,
		RelatedAccount: tx.RelatedAccount,
		CreatedAt:      tx.CreatedAt,
	}
}

// Publisher 將已提交的交易發佈到 Kafka
// 以帳戶 ID 作為 message key，同一帳戶的事件會落在同一個 partition
// 發佈在釋放帳戶鎖之後進行，不同操作的事件可能交錯送達，消費端需依 Sequence 排序
type Publisher struct {
	writer Writer
}

func NewPublisher(writer Writer) *Publisher {
	return &Publisher{writer: writer}
}

// NewWriter 建立 kafka-go writer
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Publish 一次送出同一個提交中的所有交易
func (p *Publisher) Publish(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(txs))
	for _, tx := range txs {
		data, err := json.Marshal(NewEvent(tx))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(strconv.FormatInt(tx.AccountID, 10)),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "type", Value: []byte(tx.Type.String())},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		publishErrors.Inc()
		logger.Log.Errorw("failed to publish ledger events", "count", len(msgs), "error", err)
		return err
	}
	eventsPublished.Add(float64(len(msgs)))
	logger.Log.Debugw("ledger events published", "count", len(msgs))
	return nil
}

// Close 關閉 writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ usecase.EventPublisher = (*Publisher)(nil)
