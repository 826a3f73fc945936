package webfetch

import "time"

// RetryPlan is the full attempt schedule computed up front for one fetch,
// so a caller can log or inspect exactly when each retry will fire before
// any of them run.
type RetryPlan struct {
	EffectID    string
	PolicyID    string
	Schedule    []RetryAttempt
	MaxAttempts int
	CreatedAt   time.Time
}

// RetryAttempt is one scheduled attempt within a RetryPlan.
type RetryAttempt struct {
	AttemptIndex int
	DelayMs      int64
	ScheduledAt  time.Time
}

// GenerateRetryPlan computes the full attempt schedule for policy,
// starting at now. Attempt 0 always fires immediately (DelayMs 0).
func GenerateRetryPlan(params BackoffParams, policy BackoffPolicy, now time.Time) *RetryPlan {
	schedule := make([]RetryAttempt, policy.MaxAttempts)
	scheduledAt := now

	for i := 0; i < policy.MaxAttempts; i++ {
		attemptParams := params
		attemptParams.AttemptIndex = i

		var delay time.Duration
		if i > 0 {
			delay = ComputeBackoff(attemptParams, policy)
		}
		scheduledAt = scheduledAt.Add(delay)

		schedule[i] = RetryAttempt{
			AttemptIndex: i,
			DelayMs:      delay.Milliseconds(),
			ScheduledAt:  scheduledAt,
		}
	}

	return &RetryPlan{
		EffectID:    params.EffectID,
		PolicyID:    policy.PolicyID,
		Schedule:    schedule,
		MaxAttempts: policy.MaxAttempts,
		CreatedAt:   now,
	}
}
