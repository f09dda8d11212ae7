package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
)

const (
	SubjectBatchCompleted = "payroll.batch.completed"
	SubjectPayslipsResent = "payroll.payslips.resent"
)

// messageSender is the part of *azservicebus.Sender the publisher needs.
type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// ServiceBusPublisher puts completed batches and payslip resends on an Azure
// Service Bus queue for downstream consumers (ledger export, mail audit).
// Run transitions stay in-process and are not sent. Sends run in the
// background; Close waits for them.
type ServiceBusPublisher struct {
	client  *azservicebus.Client
	sender  messageSender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewServiceBusPublisher(connectionString, queue string) (*ServiceBusPublisher, error) {
	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service bus client: %w", err)
	}
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to create service bus sender for %s: %w", queue, err)
	}
	return &ServiceBusPublisher{client: client, sender: sender, timeout: 10 * time.Second}, nil
}

type batchCompletedMessage struct {
	CompanyID         string                    `json:"company_id"`
	RunID             string                    `json:"run_id"`
	ApprovalID        string                    `json:"approval_id"`
	PayrollID         string                    `json:"payroll_id"`
	Period            payroll.PayrollPeriod     `json:"period"`
	EmployeeIDs       []string                  `json:"employee_ids"`
	ProcessingSummary payroll.ProcessingSummary `json:"processing_summary"`
	CompletedAt       time.Time                 `json:"completed_at"`
}

type payslipsResentMessage struct {
	CompanyID    string                     `json:"company_id"`
	PayrollID    string                     `json:"payroll_id"`
	SuccessCount int                        `json:"success_count"`
	ErrorCount   int                        `json:"error_count"`
	Results      []payroll.EmployeeDelivery `json:"per_employee_results"`
}

func (p *ServiceBusPublisher) RunTransitioned(context.Context, string, payroll.RunResponse) {}

func (p *ServiceBusPublisher) BatchCompleted(ctx context.Context, batch payroll.StoredBatch) {
	msg := batchCompletedMessage{
		CompanyID:         batch.CompanyID,
		RunID:             batch.RunID,
		ApprovalID:        batch.ApprovalID,
		PayrollID:         batch.PayrollID,
		Period:            batch.Period,
		EmployeeIDs:       batch.EmployeeIDs,
		ProcessingSummary: batch.ProcessingSummary,
		CompletedAt:       batch.CreatedAt,
	}
	// One message per payroll; the id lets duplicate detection drop resends.
	p.send(ctx, SubjectBatchCompleted, batch.CompanyID, batch.PayrollID, msg)
}

func (p *ServiceBusPublisher) PayslipsResent(ctx context.Context, companyID string, payrollID string, outcome payroll.ResendOutcome) {
	msg := payslipsResentMessage{
		CompanyID:    companyID,
		PayrollID:    payrollID,
		SuccessCount: outcome.SuccessCount,
		ErrorCount:   outcome.ErrorCount,
		Results:      outcome.PerEmployeeResults,
	}
	p.send(ctx, SubjectPayslipsResent, companyID, "", msg)
}

func (p *ServiceBusPublisher) send(ctx context.Context, subject, companyID, messageID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode service bus message", "subject", subject, "error", err)
		return
	}

	message := &azservicebus.Message{
		Body:        body,
		ContentType: strPtr("application/json"),
		Subject:     strPtr(subject),
		ApplicationProperties: map[string]any{
			"company_id": companyID,
		},
	}
	if messageID != "" {
		message.MessageID = strPtr(messageID)
	}

	// The request may finish before the send does.
	detached := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, p.timeout)
		defer cancel()

		if err := p.sender.SendMessage(sendCtx, message, nil); err != nil {
			slog.Error("failed to publish service bus message", "subject", subject, "company_id", companyID, "error", err)
			return
		}
		slog.Debug("published service bus message", "subject", subject, "company_id", companyID)
	}()
}

// wait blocks until every background send has finished.
func (p *ServiceBusPublisher) wait() {
	p.wg.Wait()
}

// Close releases the sender and the client.
func (p *ServiceBusPublisher) Close(ctx context.Context) error {
	p.wait()
	if err := p.sender.Close(ctx); err != nil {
		return fmt.Errorf("failed to close service bus sender: %w", err)
	}
	if p.client != nil {
		return p.client.Close(ctx)
	}
	return nil
}

func strPtr(s string) *string { return &s }
