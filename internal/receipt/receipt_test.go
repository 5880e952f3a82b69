package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/events"
	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/obs"
	"github.com/noah-isme/kasir-api/internal/pricing"
	"github.com/noah-isme/kasir-api/internal/region"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	seen  map[string]bool
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			id := o.Value().(string)
			if f.seen[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			f.seen[id] = true
		}
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{}, nil
}

func sampleTx(email string) ledger.Transaction {
	return ledger.Transaction{
		ID: "0190f5c2-aaaa-7bbb-8ccc-1234567890ab",
		Items: []ledger.Item{
			{Product: catalog.Product{ID: "1", Name: "Parle-G Biscuits", Price: 10, TaxRate: 5}, Quantity: 2},
			{Product: catalog.Product{ID: "2", Name: "Amul Butter", Price: 56, TaxRate: 12}, Quantity: 1},
		},
		Subtotal:      pricing.MustParseMoney("76"),
		Tax:           pricing.MustParseMoney("7.72"),
		Total:         pricing.MustParseMoney("83.72"),
		PaymentMethod: ledger.PaymentUPI,
		CustomerName:  "Ravi",
		CustomerEmail: email,
		RegionID:      "in",
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func recordedEvent(t *testing.T, tx ledger.Transaction) events.Event {
	t.Helper()
	payload, err := json.Marshal(tx)
	require.NoError(t, err)
	return events.Event{Topic: events.TopicTransactionRecorded, AggregateID: tx.ID, Payload: payload}
}

func TestNotifierEnqueuesOncePerTransaction(t *testing.T) {
	obs.MustRegisterDomainMetrics("kasir_test", prometheus.NewRegistry())
	before := testutil.ToFloat64(obs.ReceiptJobsTotal.WithLabelValues("enqueue", "duplicate"))

	client := &fakeEnqueuer{}
	n := Notifier{Client: client, Enabled: true, Queue: "receipts"}
	event := recordedEvent(t, sampleTx("ravi@example.com"))

	require.NoError(t, n.Notify(context.Background(), event))
	require.NoError(t, n.Notify(context.Background(), event))
	require.Len(t, client.tasks, 1)
	require.Equal(t, TypeSendReceipt, client.tasks[0].Type())
	require.Equal(t, 1.0, testutil.ToFloat64(obs.ReceiptJobsTotal.WithLabelValues("enqueue", "duplicate"))-before)
}

func TestNotifierSkips(t *testing.T) {
	client := &fakeEnqueuer{}
	n := Notifier{Client: client, Enabled: true}

	require.NoError(t, n.Notify(context.Background(), recordedEvent(t, sampleTx(""))))
	other := recordedEvent(t, sampleTx("ravi@example.com"))
	other.Topic = "product.updated"
	require.NoError(t, n.Notify(context.Background(), other))
	require.NoError(t, Notifier{Client: client}.Notify(context.Background(), recordedEvent(t, sampleTx("ravi@example.com"))))
	require.Empty(t, client.tasks)

	bad := events.Event{Topic: events.TopicTransactionRecorded, Payload: json.RawMessage(`"nope"`)}
	require.Error(t, n.Notify(context.Background(), bad))
}

func TestNotifierPropagatesEnqueueErrors(t *testing.T) {
	n := Notifier{Client: &fakeEnqueuer{err: errors.New("redis down")}, Enabled: true}
	require.Error(t, n.Notify(context.Background(), recordedEvent(t, sampleTx("ravi@example.com"))))
}

func TestRender(t *testing.T) {
	subject, body := Render(sampleTx("ravi@example.com"), region.MustDefault())
	require.Equal(t, "Your receipt 567890ab (₹83.72)", subject)
	require.Contains(t, body, "Hi Ravi,")
	require.Contains(t, body, "2 x Parle-G Biscuits  ₹20.00")
	require.Contains(t, body, "GST: ₹7.72")
	require.Contains(t, body, "Total: ₹83.72")
	require.Contains(t, body, "Payment: UPI")
}

func TestWorkerHandle(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := &Worker{Mail: mail, Regions: region.MustDefault(), Logger: zerolog.Nop()}

	task, err := NewTask(sampleTx("ravi@example.com"))
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), task))
	sent := mail.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "ravi@example.com", sent[0].To)

	err = w.Handle(context.Background(), asynq.NewTask(TypeSendReceipt, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	mux := asynq.NewServeMux()
	w.Register(mux)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	require.Len(t, mail.Sent(), 2)
}
