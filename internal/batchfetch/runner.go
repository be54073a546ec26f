package batchfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch/domain"
	"github.com/dpalacios/newsdesk-be/internal/fetch"
	"github.com/dpalacios/newsdesk-be/internal/sources"
)

// Runner executes one planned batch fetch job: steps run strictly in
// planning order on a single worker, each isolated so a misbehaving source
// cannot abort the run. Callers must not invoke Execute twice concurrently
// for the same job.
type Runner struct {
	store    Store
	registry Registry
	fetchers *fetch.FetcherSet
	logger   *slog.Logger

	// injectable for tests
	now       func() time.Time
	sleep     func(time.Duration)
	randFloat func() float64
}

// NewRunner creates a batch fetch runner
func NewRunner(store Store, registry Registry, fetchers *fetch.FetcherSet, logger *slog.Logger) *Runner {
	return &Runner{
		store:     store,
		registry:  registry,
		fetchers:  fetchers,
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// progress mirrors the job counters; persisted after every step so polling
// clients see live, monotonically non-decreasing values
type progress struct {
	completed int
	success   int
	failed    int
	skipped   int
}

// Execute runs the job to a terminal status. Step-level failures are
// absorbed into the step; only orchestration-level faults (store or
// registry errors) fail the job itself.
func (r *Runner) Execute(ctx context.Context, jobID string) error {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	policy, err := ParsePolicy(job.ConfigJSON)
	if err != nil {
		r.logger.Warn("Unreadable run policy snapshot, using defaults",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}

	if err := r.store.MarkJobRunning(ctx, jobID, r.now().UTC(), "Starting batch fetch"); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}

	r.logger.Info("Batch fetch started",
		slog.String("job_id", jobID),
		slog.Int("skip_hours", policy.SkipHours),
		slog.Bool("force", policy.Force),
	)

	steps, err := r.store.GetJobSteps(ctx, jobID)
	if err != nil {
		r.failJob(ctx, jobID, err)
		return err
	}

	if len(steps) == 0 {
		if err := r.store.FinalizeJob(ctx, jobID, domain.JobStatusCompleted, r.now().UTC(), "No active sources to fetch"); err != nil {
			return fmt.Errorf("failed to finalize empty job: %w", err)
		}
		return nil
	}

	var prog progress
	instagramCalls := 0

	for i := range steps {
		if fatal := r.runStep(ctx, jobID, &steps[i], policy, &prog, &instagramCalls); fatal != nil {
			r.failJob(ctx, jobID, fatal)
			return fatal
		}
	}

	finalStatus := domain.JobStatusCompleted
	if prog.failed > 0 {
		finalStatus = domain.JobStatusCompletedWithErrors
	}

	if err := r.store.FinalizeJob(ctx, jobID, finalStatus, r.now().UTC(), "Batch fetch finished"); err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}

	r.logger.Info("Batch fetch finished",
		slog.String("job_id", jobID),
		slog.String("status", finalStatus),
		slog.Int("success", prog.success),
		slog.Int("failed", prog.failed),
		slog.Int("skipped", prog.skipped),
	)

	return nil
}

// runStep drives one step to its terminal status. A non-nil return is an
// orchestration-level fault; step-level failures return nil after being
// recorded on the step.
func (r *Runner) runStep(ctx context.Context, jobID string, step *domain.BatchFetchJobStep, policy RunPolicy, prog *progress, instagramCalls *int) error {
	if err := r.store.SetJobMessage(ctx, jobID, "Processing "+stepLabel(step)); err != nil {
		return err
	}
	if err := r.store.MarkStepRunning(ctx, step.ID, r.now().UTC()); err != nil {
		return err
	}

	var state *sources.SourceState
	if step.SourceID != nil {
		var err error
		state, err = r.registry.SourceState(ctx, step.SourceType, *step.SourceID)
		if err != nil {
			return err
		}
	}

	isNewspaper := step.SourceType == domain.SourceTypeElComercio || step.SourceType == domain.SourceTypeDiarioCorreo

	// Missing rss/instagram/youtube sources fail the step; newspaper
	// singletons are auto-provisioned, so absence is tolerated.
	if state == nil && !isNewspaper {
		errMsg := "Source not found."
		return r.finishStep(ctx, jobID, step, prog, domain.StepOutcome{
			Status:       domain.StepStatusFailed,
			FinishedAt:   r.now().UTC(),
			ErrorMessage: &errMsg,
		})
	}

	if state != nil && !state.IsActive {
		reason := "Feed is inactive."
		return r.finishStep(ctx, jobID, step, prog, domain.StepOutcome{
			Status:     domain.StepStatusSkipped,
			FinishedAt: r.now().UTC(),
			SkipReason: &reason,
		})
	}

	if state != nil {
		if skip, reason := r.checkSkipWindow(state.LastFetched, policy); skip {
			return r.finishStep(ctx, jobID, step, prog, domain.StepOutcome{
				Status:     domain.StepStatusSkipped,
				FinishedAt: r.now().UTC(),
				SkipReason: &reason,
			})
		}
	}

	// Inter-call throttle: the second and later Instagram invocations wait
	// a random interval to stay under the upstream rate limit.
	if step.SourceType == domain.SourceTypeInstagram && *instagramCalls > 0 {
		delay := policy.InstagramDelayMin + r.randFloat()*(policy.InstagramDelayMax-policy.InstagramDelayMin)
		if delay > 0 {
			r.sleep(time.Duration(delay * float64(time.Second)))
		}
	}

	outcome := r.invokeFetcher(ctx, step, instagramCalls)
	return r.finishStep(ctx, jobID, step, prog, outcome)
}

// invokeFetcher calls the step's adapter and maps its report onto a step
// outcome. Adapter errors become failed steps, never orchestration faults.
func (r *Runner) invokeFetcher(ctx context.Context, step *domain.BatchFetchJobStep, instagramCalls *int) domain.StepOutcome {
	fetcher := r.fetchers.ForSourceType(step.SourceType)
	if fetcher == nil {
		errMsg := "Unsupported source type: " + step.SourceType
		return domain.StepOutcome{
			Status:       domain.StepStatusFailed,
			FinishedAt:   r.now().UTC(),
			ErrorMessage: &errMsg,
		}
	}

	if step.SourceType == domain.SourceTypeInstagram {
		*instagramCalls++
	}

	var sourceID int64
	if step.SourceID != nil {
		sourceID = *step.SourceID
	}

	result, err := fetcher.Fetch(ctx, sourceID)
	if err != nil {
		errMsg := err.Error()
		return domain.StepOutcome{
			Status:       domain.StepStatusFailed,
			FinishedAt:   r.now().UTC(),
			ErrorMessage: &errMsg,
		}
	}

	outcome := domain.StepOutcome{
		Status:     domain.StepStatusSuccess,
		FinishedAt: r.now().UTC(),
	}

	if result != nil {
		if encoded, err := json.Marshal(result); err == nil {
			resultJSON := string(encoded)
			outcome.ResultJSON = &resultJSON
		}
		// A returned error message rides along even on success; downstream
		// consumers rely on seeing partial-success messages.
		if result.ErrorMessage != "" {
			errMsg := result.ErrorMessage
			outcome.ErrorMessage = &errMsg
		}
		if strings.EqualFold(result.Status, fetch.StatusFailed) {
			outcome.Status = domain.StepStatusFailed
		}
	}

	return outcome
}

// finishStep records a step's terminal state and persists the job counters
func (r *Runner) finishStep(ctx context.Context, jobID string, step *domain.BatchFetchJobStep, prog *progress, outcome domain.StepOutcome) error {
	if err := r.store.FinishStep(ctx, step.ID, outcome); err != nil {
		return err
	}

	prog.completed++
	switch outcome.Status {
	case domain.StepStatusSuccess:
		prog.success++
	case domain.StepStatusFailed:
		prog.failed++
	case domain.StepStatusSkipped:
		prog.skipped++
	}

	return r.store.UpdateJobCounters(ctx, jobID, prog.completed, prog.success, prog.failed, prog.skipped)
}

// checkSkipWindow applies the elapsed-time policy. The clock-skew guard
// (last fetch in the future) applies even under force; the elapsed window
// itself is bypassed by force. Sources without a prior fetch never skip.
func (r *Runner) checkSkipWindow(lastFetched *time.Time, policy RunPolicy) (bool, string) {
	if policy.SkipHours <= 0 || lastFetched == nil {
		return false, ""
	}

	now := r.now().UTC()
	if lastFetched.After(now) {
		return true, "Last fetched timestamp is in the future."
	}
	if !policy.Force && now.Sub(*lastFetched) < time.Duration(policy.SkipHours)*time.Hour {
		return true, fmt.Sprintf("Fetched within the last %d hours.", policy.SkipHours)
	}

	return false, ""
}

// failJob finalizes the job as failed after an orchestration-level fault,
// keeping already-completed steps as they are
func (r *Runner) failJob(ctx context.Context, jobID string, cause error) {
	r.logger.Error("Batch fetch failed",
		slog.String("job_id", jobID),
		slog.String("error", cause.Error()),
	)

	if err := r.store.MarkJobFailed(ctx, jobID, r.now().UTC(), cause.Error()); err != nil {
		r.logger.Error("Failed to record job failure",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// stepLabel renders a step for the job's activity message, prefixing
// Instagram account names with @
func stepLabel(step *domain.BatchFetchJobStep) string {
	name := step.SourceName
	if step.SourceType == domain.SourceTypeInstagram && name != "" && !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	if name != "" {
		return step.SourceType + ": " + name
	}
	return step.SourceType
}
