// Package notify delivers fired price alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// Message is the text shown for a fired alert.
func Message(rule models.AlertRule, price float64) string {
	return fmt.Sprintf("%s reached %s", rule.Symbol, strconv.FormatFloat(price, 'f', -1, 64))
}

// Log writes alerts to the logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, rule models.AlertRule, price float64) error {
	l.logger.Info("Alert: "+Message(rule, price),
		zap.String("symbol", rule.Symbol),
		zap.Float64("threshold", rule.Price),
		zap.Float64("price", price))
	return nil
}

// Sender is the part of the Telegram bot API used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends alerts to one chat with linear-backoff retry.
type Telegram struct {
	bot            Sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

func NewTelegram(botToken, chatID string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID)
}

func NewTelegramWithSender(bot Sender, chatID string) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	return &Telegram{bot: bot, chatID: id, maxRetries: 3, retryDelayBase: time.Second}, nil
}

// WithRetry overrides the retry policy.
func (t *Telegram) WithRetry(maxRetries int, base time.Duration) *Telegram {
	if maxRetries > 0 {
		t.maxRetries = maxRetries
	}
	t.retryDelayBase = base
	return t
}

func (t *Telegram) Notify(ctx context.Context, rule models.AlertRule, price float64) error {
	msg := tgbotapi.NewMessage(t.chatID, "🔔 "+Message(rule, price))

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		_, err := t.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", t.maxRetries, lastErr)
}

type Notifier interface {
	Notify(ctx context.Context, rule models.AlertRule, price float64) error
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, rule models.AlertRule, price float64) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, rule, price); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var ErrQueueFull = errors.New("notification queue full")

type pending struct {
	rule  models.AlertRule
	price float64
}

// Queue hands alerts to next on a goroutine of its own, so a slow or
// retrying notifier never blocks the caller. Run must be started.
type Queue struct {
	next   Notifier
	logger *zap.Logger
	jobs   chan pending
}

func NewQueue(next Notifier, logger *zap.Logger, size int) *Queue {
	if size <= 0 {
		size = 16
	}
	return &Queue{next: next, logger: logger, jobs: make(chan pending, size)}
}

// Notify enqueues the alert. A full queue drops it and returns ErrQueueFull.
func (q *Queue) Notify(ctx context.Context, rule models.AlertRule, price float64) error {
	select {
	case q.jobs <- pending{rule: rule, price: price}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued alerts in order until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-q.jobs:
			if err := q.next.Notify(ctx, p.rule, p.price); err != nil {
				q.logger.Warn("Alert delivery failed", zap.String("symbol", p.rule.Symbol), zap.Error(err))
			}
		}
	}
}
