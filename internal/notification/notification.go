// Package notification delivers reservation lifecycle events to downstream
// systems once the change is committed.
package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	KindReservationCaptured  = "reservation_captured"
	KindReservationCancelled = "reservation_cancelled"
	KindReservationExpired   = "reservation_expired"
)

// Message describes a committed change to a wallet's holds.
type Message struct {
	Kind          string
	WalletID      string
	ReservationID string
	// Amount is the held amount in minor units.
	Amount int64
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("wallet_id", message.WalletID),
		slog.String("reservation_id", message.ReservationID),
		slog.Int64("amount", message.Amount),
	)
	return nil
}

// Recorder keeps every message it is sent. Used by tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of what was sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}
