package domain

import "time"

// ServiceState tracks a monitored credential's failure streak. Only the
// credential monitor mutates it.
type ServiceState struct {
	Count        int       `json:"count"`
	LastNotified time.Time `json:"last_notified,omitempty"`
	Recovered    bool      `json:"recovered"`
}

type ServiceResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	ServiceOK           = "ok"
	ServiceFailed       = "failed"
	ServiceUnconfigured = "unconfigured"
)

type CheckSummary struct {
	Checked      int                      `json:"checked"`
	Unconfigured int                      `json:"unconfigured"`
	Failures     int                      `json:"failures"`
	Results      map[string]ServiceResult `json:"results"`
}
