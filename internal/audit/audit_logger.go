package audit

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditEvent is one audit record.
type AuditEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	EventType      string    `json:"event_type"`
	RefID          string    `json:"ref_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency,omitempty"`
	Status         string    `json:"status"`
	Details        any       `json:"details,omitempty"`
}

// AuditLogger writes one structured line per money movement.
type AuditLogger struct {
	log logrus.FieldLogger
	now func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(log logrus.FieldLogger) *AuditLogger {
	return &AuditLogger{log: log, now: time.Now}
}

// LogTransfer records a posted, replayed or failed transfer.
func (a *AuditLogger) LogTransfer(refID, idempotencyKey, currency string, gross int64, status string) {
	a.write(AuditEvent{
		Timestamp:      a.now(),
		EventType:      "TRANSFER",
		RefID:          refID,
		IdempotencyKey: idempotencyKey,
		Amount:         gross,
		Currency:       currency,
		Status:         status,
	})
}

// LogError records a transfer that was rejected.
func (a *AuditLogger) LogError(idempotencyKey string, err error) {
	a.write(AuditEvent{
		Timestamp:      a.now(),
		EventType:      "ERROR",
		IdempotencyKey: idempotencyKey,
		Status:         "FAILED",
		Details:        map[string]string{"error": err.Error()},
	})
}

// LogOperation records an operator action against a ref.
func (a *AuditLogger) LogOperation(refID, operation, details string) {
	a.write(AuditEvent{
		Timestamp: a.now(),
		EventType: operation,
		RefID:     refID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	})
}

func (a *AuditLogger) write(event AuditEvent) {
	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"status":     event.Status,
		"amount":     event.Amount,
		"event_time": event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if event.RefID != "" {
		fields["ref_id"] = event.RefID
	}
	if event.IdempotencyKey != "" {
		fields["idempotency_key"] = event.IdempotencyKey
	}
	if event.Currency != "" {
		fields["currency"] = event.Currency
	}
	if event.Details != nil {
		fields["details"] = event.Details
	}
	a.log.WithFields(fields).Info("AUDIT")
}
