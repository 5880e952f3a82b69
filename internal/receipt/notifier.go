package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/kasir-api/internal/events"
	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/obs"
)

// TypeSendReceipt is the asynq task type that e-mails a receipt.
const TypeSendReceipt = "receipt:send"

const (
	defaultQueue    = "receipts"
	defaultMaxRetry = 5
)

// Enqueuer is the subset of *asynq.Client used to schedule receipts.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns transaction.recorded events into receipt tasks.
type Notifier struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
	Timeout  time.Duration
	Enabled  bool
}

// Notify implements events.Notifier. Transactions without a customer e-mail
// are skipped; re-emitting the same transaction enqueues it only once.
func (n Notifier) Notify(ctx context.Context, event events.Event) error {
	if !n.Enabled || n.Client == nil || event.Topic != events.TopicTransactionRecorded {
		return nil
	}
	var tx ledger.Transaction
	if err := json.Unmarshal(event.Payload, &tx); err != nil {
		recordJob("enqueue", "invalid")
		return fmt.Errorf("receipt: decode payload: %w", err)
	}
	if strings.TrimSpace(tx.CustomerEmail) == "" {
		recordJob("enqueue", "skipped")
		return nil
	}
	task, err := NewTask(tx)
	if err != nil {
		recordJob("enqueue", "invalid")
		return err
	}
	queue := n.Queue
	if queue == "" {
		queue = defaultQueue
	}
	maxRetry := n.MaxRetry
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	opts := []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(maxRetry),
		asynq.TaskID("receipt:" + tx.ID),
	}
	if n.Timeout > 0 {
		opts = append(opts, asynq.Timeout(n.Timeout))
	}
	if _, err := n.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			recordJob("enqueue", "duplicate")
			return nil
		}
		recordJob("enqueue", "error")
		return fmt.Errorf("receipt: enqueue: %w", err)
	}
	recordJob("enqueue", "ok")
	return nil
}

// NewTask builds the receipt task for tx.
func NewTask(tx ledger.Transaction) (*asynq.Task, error) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("receipt: encode task: %w", err)
	}
	return asynq.NewTask(TypeSendReceipt, payload), nil
}

func recordJob(stage, result string) {
	if obs.ReceiptJobsTotal != nil {
		obs.ReceiptJobsTotal.WithLabelValues(stage, result).Inc()
	}
}
