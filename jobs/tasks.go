package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditVerify runs a full audit ledger verification.
	TaskAuditVerify = "audit:verify"
)

// Trigger sources recorded on verification tasks.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// AuditVerifyPayload describes one verification request.
type AuditVerifyPayload struct {
	Trigger     string `json:"trigger"`
	RequestedBy int64  `json:"requested_by,omitempty"`
}

// NewAuditVerifyTask constructs an Asynq task for ledger verification.
func NewAuditVerifyTask(payload AuditVerifyPayload) (*asynq.Task, error) {
	if payload.Trigger == "" {
		payload.Trigger = TriggerManual
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditVerify, data, asynq.Queue(QueueDefault)), nil
}
