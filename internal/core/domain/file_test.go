package domain

import (
	"testing"
	"time"
)

func entry(step string, status StepStatus, at time.Time) ProcessingLogEntry {
	return ProcessingLogEntry{StepName: step, Status: status, Timestamp: at}
}

func TestDeriveStatusEmpty(t *testing.T) {
	if got := DeriveStatus(nil); got != StatusPending {
		t.Fatalf("DeriveStatus(nil) = %s, want %s", got, StatusPending)
	}
}

func TestDeriveStatusFailureWins(t *testing.T) {
	now := time.Now()
	entries := []ProcessingLogEntry{
		entry("ingest", StepSuccess, now),
		entry("route", StepFailure, now.Add(time.Minute)),
		entry("ocr", StepInProgress, now.Add(2*time.Minute)),
	}
	if got := DeriveStatus(entries); got != StatusFailed {
		t.Fatalf("DeriveStatus() = %s, want %s", got, StatusFailed)
	}
}

func TestDeriveStatusInProgress(t *testing.T) {
	now := time.Now()
	entries := []ProcessingLogEntry{
		entry("ingest", StepSuccess, now),
		entry("route", StepInProgress, now.Add(time.Minute)),
	}
	if got := DeriveStatus(entries); got != StatusProcessing {
		t.Fatalf("DeriveStatus() = %s, want %s", got, StatusProcessing)
	}
}

func TestDeriveStatusCompletedFromLatestSuccess(t *testing.T) {
	now := time.Now()
	entries := []ProcessingLogEntry{
		entry("route", StepSuccess, now.Add(time.Minute)),
		entry("ingest", StepSuccess, now),
		entry("upload:localdir", StepSuccess, now.Add(2*time.Minute)),
	}
	if got := DeriveStatus(entries); got != StatusCompleted {
		t.Fatalf("DeriveStatus() = %s, want %s", got, StatusCompleted)
	}
}

func TestDeriveStatusPendingWhenLatestNotSuccess(t *testing.T) {
	now := time.Now()
	entries := []ProcessingLogEntry{
		entry("ingest", StepSuccess, now),
		entry("route", StepPending, now.Add(time.Minute)),
	}
	if got := DeriveStatus(entries); got != StatusPending {
		t.Fatalf("DeriveStatus() = %s, want %s", got, StatusPending)
	}
}
