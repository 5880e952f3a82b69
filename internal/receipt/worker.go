package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/region"
)

// Worker delivers receipt tasks through an EmailSender.
type Worker struct {
	Mail    common.EmailSender
	Regions *region.Registry
	Logger  zerolog.Logger
}

// Register mounts the worker on mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendReceipt, w.Handle)
}

// Handle processes one receipt task. Malformed payloads are not retried.
func (w *Worker) Handle(ctx context.Context, task *asynq.Task) error {
	var tx ledger.Transaction
	if err := json.Unmarshal(task.Payload(), &tx); err != nil {
		recordJob("deliver", "invalid")
		return fmt.Errorf("receipt: decode task: %v: %w", err, asynq.SkipRetry)
	}
	to := strings.TrimSpace(tx.CustomerEmail)
	if to == "" {
		recordJob("deliver", "skipped")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := Render(tx, w.Regions)
	if err := w.Mail.Send(to, subject, body); err != nil {
		recordJob("deliver", "error")
		w.Logger.Warn().Err(err).Str("transaction_id", tx.ID).Msg("receipt delivery failed")
		return fmt.Errorf("receipt: send: %w", err)
	}
	recordJob("deliver", "ok")
	w.Logger.Info().Str("transaction_id", tx.ID).Str("region_id", tx.RegionID).Msg("receipt delivered")
	return nil
}
