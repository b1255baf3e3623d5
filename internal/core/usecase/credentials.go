package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// notifyCap bounds alerting per failure streak. After this many
// consecutive failures the monitor goes quiet until the service recovers.
const notifyCap = 3

// CredentialMonitor sweeps every registered credential checker and
// tracks failure streaks across runs.
type CredentialMonitor struct {
	checkers []ports.CredentialChecker
	states   ports.CredentialStateStore
	notifier ports.Notifier
	logger   *slog.Logger
}

func NewCredentialMonitor(
	checkers []ports.CredentialChecker,
	states ports.CredentialStateStore,
	notifier ports.Notifier,
	logger *slog.Logger,
) *CredentialMonitor {
	return &CredentialMonitor{
		checkers: checkers,
		states:   states,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one sweep. Every checker is exercised even when earlier
// ones fail or panic, and the persisted streak state is written back once
// at the end.
func (m *CredentialMonitor) Run(ctx context.Context) (*domain.CheckSummary, error) {
	states, err := m.states.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential state: %w", err)
	}
	if states == nil {
		states = map[string]domain.ServiceState{}
	}

	summary := &domain.CheckSummary{Results: map[string]domain.ServiceResult{}}

	for _, checker := range m.checkers {
		name := checker.Name()
		if !checker.Configured() {
			summary.Unconfigured++
			summary.Results[name] = domain.ServiceResult{Status: domain.ServiceUnconfigured}
			continue
		}

		summary.Checked++
		checkErr := m.safeCheck(ctx, checker)
		state := states[name]

		if checkErr != nil {
			summary.Failures++
			summary.Results[name] = domain.ServiceResult{Status: domain.ServiceFailed, Message: checkErr.Error()}
			states[name] = m.recordFailure(ctx, name, state, checkErr)
			continue
		}

		summary.Results[name] = domain.ServiceResult{Status: domain.ServiceOK}
		if state.Count > 0 {
			m.logger.Info("credential_recovered", "service", name, "failed_checks", state.Count)
			state.Count = 0
			state.Recovered = true
			states[name] = state
		}
	}

	if err := m.states.Save(ctx, states); err != nil {
		return nil, fmt.Errorf("save credential state: %w", err)
	}
	return summary, nil
}

// recordFailure bumps the streak and decides whether to alert. The first
// failures of a streak notify up to the cap; a failure right after a
// recovery always notifies once, then re-enters the capped regime.
func (m *CredentialMonitor) recordFailure(ctx context.Context, name string, state domain.ServiceState, checkErr error) domain.ServiceState {
	state.Count++

	if state.Count <= notifyCap || state.Recovered {
		subject := fmt.Sprintf("credential check failed: %s", name)
		message := fmt.Sprintf("%s failed %d consecutive check(s): %v", name, state.Count, checkErr)
		if err := m.notifier.Notify(ctx, subject, message); err != nil {
			m.logger.Error("credential_notify_failed", "service", name, "error", err)
		} else {
			state.LastNotified = time.Now().UTC()
		}
		state.Recovered = false
	}

	m.logger.Warn("credential_check_failed", "service", name, "failed_checks", state.Count, "error", checkErr)
	return state
}

// safeCheck keeps one misbehaving checker from taking the sweep down.
func (m *CredentialMonitor) safeCheck(ctx context.Context, checker ports.CredentialChecker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("checker panic: %v", r)
		}
	}()
	return checker.Check(ctx)
}
