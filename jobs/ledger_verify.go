package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/timeguard/timeguard/internal/jobs"
	"github.com/timeguard/timeguard/internal/ledger"
)

// ErrLedgerCompromised is returned by the verify job when the ledger is not
// intact, so the run shows up as failed in the queue.
var ErrLedgerCompromised = errors.New("audit verify: ledger integrity problems found")

// LedgerVerifier replays the ledger.
type LedgerVerifier interface {
	Verify(ctx context.Context) (ledger.Report, error)
}

// AuditVerifyJob runs the integrity verifier off the request path.
type AuditVerifyJob struct {
	Verifier LedgerVerifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewAuditVerifyJob constructs the job handler.
func NewAuditVerifyJob(verifier LedgerVerifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditVerifyJob {
	return &AuditVerifyJob{Verifier: verifier, Logger: logger, Metrics: metrics}
}

// Handle executes one verification run. Integrity problems are not retried.
func (j *AuditVerifyJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Verifier == nil {
		return errors.New("audit verify: dependencies not configured")
	}
	var payload AuditVerifyPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskAuditVerify)
	report, err := j.Verifier.Verify(ctx)
	if err != nil {
		j.log().Error("audit verify", slog.String("trigger", payload.Trigger), slog.Any("error", err))
		return tracker.End(err)
	}

	problems := make(map[string]int)
	for _, p := range report.Invalid {
		problems[p.Reason]++
	}
	j.Metrics.ObserveVerification(report.Total, problems, report.Intact())

	attrs := []any{
		slog.String("run_id", report.RunID),
		slog.String("trigger", payload.Trigger),
		slog.Int("total", report.Total),
		slog.Int("valid", report.ValidCount),
		slog.Bool("chain_broken", report.ChainBroken),
	}
	if !report.Intact() {
		j.log().Error("audit ledger integrity problems", append(attrs, slog.Int("problems", len(report.Invalid)))...)
		return tracker.End(errors.Join(ErrLedgerCompromised, asynq.SkipRetry))
	}
	j.log().Info("audit ledger intact", attrs...)
	return tracker.End(nil)
}

func (j *AuditVerifyJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
