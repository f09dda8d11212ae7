package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*azservicebus.Message
	err      error
	closed   bool
	release  chan struct{}
}

func (f *fakeSender) SendMessage(ctx context.Context, message *azservicebus.Message, _ *azservicebus.SendMessageOptions) error {
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return f.err
}

func (f *fakeSender) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newTestPublisher() (*ServiceBusPublisher, *fakeSender) {
	sender := &fakeSender{}
	return &ServiceBusPublisher{sender: sender, timeout: time.Second}, sender
}

func TestServiceBusPublisher_BatchCompleted(t *testing.T) {
	pub, sender := newTestPublisher()

	pub.BatchCompleted(context.Background(), payroll.StoredBatch{
		BatchApprovalResult: payroll.BatchApprovalResult{
			ApprovalID:        "apr-1",
			PayrollID:         "pay-1",
			ProcessingSummary: payroll.ProcessingSummary{Successful: 2, TotalEmployees: 2},
		},
		CompanyID:   "company-a",
		RunID:       "run-1",
		Period:      payroll.PayrollPeriod{Month: 6, Year: 2025, Frequency: payroll.FrequencyMonthly},
		EmployeeIDs: []string{"E1", "E2"},
	})
	pub.wait()

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, SubjectBatchCompleted, *msg.Subject)
	assert.Equal(t, "application/json", *msg.ContentType)
	require.NotNil(t, msg.MessageID)
	assert.Equal(t, "pay-1", *msg.MessageID)
	assert.Equal(t, "company-a", msg.ApplicationProperties["company_id"])

	var body batchCompletedMessage
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, []string{"E1", "E2"}, body.EmployeeIDs)
	assert.Equal(t, 2, body.ProcessingSummary.Successful)
}

func TestServiceBusPublisher_SendsAfterRequestCancelled(t *testing.T) {
	pub, sender := newTestPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub.PayslipsResent(ctx, "company-a", "pay-1", payroll.ResendOutcome{SuccessCount: 1})
	pub.wait()

	require.Len(t, sender.messages, 1)
	assert.Equal(t, SubjectPayslipsResent, *sender.messages[0].Subject)
	assert.Nil(t, sender.messages[0].MessageID)
}

func TestServiceBusPublisher_SendErrorIsSwallowed(t *testing.T) {
	pub, sender := newTestPublisher()
	sender.err = assert.AnError

	assert.NotPanics(t, func() {
		pub.PayslipsResent(context.Background(), "company-a", "pay-1", payroll.ResendOutcome{})
	})
	pub.RunTransitioned(context.Background(), "company-a", payroll.RunResponse{})

	require.NoError(t, pub.Close(context.Background()))
	assert.Len(t, sender.messages, 1)
	assert.True(t, sender.closed)
}

func TestServiceBusPublisher_SlowBrokerDoesNotBlockCaller(t *testing.T) {
	pub, sender := newTestPublisher()
	sender.release = make(chan struct{})

	returned := make(chan struct{})
	go func() {
		pub.BatchCompleted(context.Background(), payroll.StoredBatch{
			BatchApprovalResult: payroll.BatchApprovalResult{PayrollID: "pay-1"},
			CompanyID:           "company-a",
		})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("BatchCompleted waited for the broker")
	}
	assert.Equal(t, 0, sender.sent())

	close(sender.release)
	require.NoError(t, pub.Close(context.Background()))
	assert.Equal(t, 1, sender.sent())
}

type countingPublisher struct {
	runs, batches, resends int
}

func (c *countingPublisher) RunTransitioned(context.Context, string, payroll.RunResponse) { c.runs++ }
func (c *countingPublisher) BatchCompleted(context.Context, payroll.StoredBatch)         { c.batches++ }
func (c *countingPublisher) PayslipsResent(context.Context, string, string, payroll.ResendOutcome) {
	c.resends++
}

func TestFanout_ForwardsToEveryPublisher(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	fan := NewFanout(a, nil, b)
	ctx := context.Background()

	fan.RunTransitioned(ctx, "company-a", payroll.RunResponse{})
	fan.BatchCompleted(ctx, payroll.StoredBatch{})
	fan.PayslipsResent(ctx, "company-a", "pay-1", payroll.ResendOutcome{})

	assert.Len(t, fan, 2)
	for _, p := range []*countingPublisher{a, b} {
		assert.Equal(t, 1, p.runs)
		assert.Equal(t, 1, p.batches)
		assert.Equal(t, 1, p.resends)
	}
}
