package model

import "time"

// RunStatus represents the current state of a calculation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Product is the unit being assessed.
type Product struct {
	ID       string         `json:"id" yaml:"id"`
	OrgID    string         `json:"org_id" yaml:"org_id"`
	Name     string         `json:"name" yaml:"name"`
	Boundary SystemBoundary `json:"system_boundary" yaml:"system_boundary"`
	Region   string         `json:"region" yaml:"region"`
}

// CalculationRun represents a single footprint calculation for a product.
type CalculationRun struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	OrgID       string     `json:"org_id"`
	Status      RunStatus  `json:"status"`
	Warnings    []Warning  `json:"warnings,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TierAttempt records a single tier consulted while resolving a material.
type TierAttempt struct {
	Tier   string `json:"tier"`
	Found  bool   `json:"found"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunOutput is everything a successful run persists. Stores write it in one
// transaction.
type RunOutput struct {
	RunID          string
	ProductID      string
	Impacts        []ResolvedImpact
	Allocations    []AllocationResult
	Aggregated     AggregatedImpacts
	Interpretation InterpretationResult
}
