package sse

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
)

const (
	EventRunTransitioned = "run.transitioned"
	EventBatchCompleted  = "batch.completed"
	EventPayslipsResent  = "payslips.resent"
)

// Event is sent to every subscriber of a company.
type Event struct {
	CompanyID string
	Event     string
	Data      interface{}
}

// Hub manages SSE subscribers per company.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      16,
	}
}

// Subscribe registers a subscriber for a company and returns its channel and
// a cleanup function that must be called once.
func (h *Hub) Subscribe(companyID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.subscribers[companyID] == nil {
		h.subscribers[companyID] = make(map[chan Event]struct{})
	}
	h.subscribers[companyID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[companyID], ch)
			close(ch)
			if len(h.subscribers[companyID]) == 0 {
				delete(h.subscribers, companyID)
			}
		})
	}
	return ch, cleanup
}

// Publish sends an event to all subscribers of the event's company.
// Slow subscribers miss events instead of blocking the publisher.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[event.CompanyID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[companyID])
}

func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}

// RunTransitioned implements payroll.EventPublisher.
func (h *Hub) RunTransitioned(_ context.Context, companyID string, run payroll.RunResponse) {
	h.Publish(Event{CompanyID: companyID, Event: EventRunTransitioned, Data: run})
}

// BatchCompleted implements payroll.EventPublisher.
func (h *Hub) BatchCompleted(_ context.Context, batch payroll.StoredBatch) {
	h.Publish(Event{CompanyID: batch.CompanyID, Event: EventBatchCompleted, Data: batch.BatchApprovalResult})
}

type resentPayload struct {
	PayrollID string `json:"payroll_id"`
	payroll.ResendOutcome
}

// PayslipsResent implements payroll.EventPublisher.
func (h *Hub) PayslipsResent(_ context.Context, companyID string, payrollID string, outcome payroll.ResendOutcome) {
	h.Publish(Event{CompanyID: companyID, Event: EventPayslipsResent, Data: resentPayload{PayrollID: payrollID, ResendOutcome: outcome}})
}
