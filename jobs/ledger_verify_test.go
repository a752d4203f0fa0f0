package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/timeguard/timeguard/internal/jobs"
	"github.com/timeguard/timeguard/internal/ledger"
)

type stubVerifier struct {
	report ledger.Report
	err    error
	calls  int
}

func (s *stubVerifier) Verify(ctx context.Context) (ledger.Report, error) {
	s.calls++
	return s.report, s.err
}

func verifyTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewAuditVerifyTask(AuditVerifyPayload{Trigger: TriggerCron})
	require.NoError(t, err)
	return task
}

func TestNewAuditVerifyTask(t *testing.T) {
	task, err := NewAuditVerifyTask(AuditVerifyPayload{})
	require.NoError(t, err)
	assert.Equal(t, TaskAuditVerify, task.Type())
	assert.JSONEq(t, `{"trigger":"manual"}`, string(task.Payload()))
}

func TestAuditVerifyJobIntactLedger(t *testing.T) {
	verifier := &stubVerifier{report: ledger.Report{Total: 4, ValidCount: 4}}
	job := NewAuditVerifyJob(verifier, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	require.NoError(t, job.Handle(context.Background(), verifyTask(t)))
	assert.Equal(t, 1, verifier.calls)
}

func TestAuditVerifyJobReportsTamperingWithoutRetry(t *testing.T) {
	verifier := &stubVerifier{report: ledger.Report{
		Total:       4,
		ValidCount:  3,
		ChainBroken: false,
		Invalid:     []ledger.Problem{{ID: 2, Reason: ledger.ReasonContentTampered}},
	}}
	job := NewAuditVerifyJob(verifier, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), verifyTask(t))
	assert.ErrorIs(t, err, ErrLedgerCompromised)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditVerifyJobPropagatesStorageErrors(t *testing.T) {
	errDB := errors.New("db down")
	job := NewAuditVerifyJob(&stubVerifier{err: errDB}, nil, nil)

	err := job.Handle(context.Background(), verifyTask(t))
	assert.ErrorIs(t, err, errDB)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditVerifyJobRejectsMalformedPayload(t *testing.T) {
	job := NewAuditVerifyJob(&stubVerifier{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAuditVerify, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
