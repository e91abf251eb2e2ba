package model

import "sync"

// Warning codes raised by non-fatal conditions during a calculation run.
const (
	WarnTierLookupFailed     = "tier_lookup_failed"
	WarnProxyMissing         = "proxy_missing"
	WarnLiveCalcFailed       = "livecalc_failed"
	WarnFacilityQueryFailed  = "facility_query_failed"
	WarnFacilityZeroVolume   = "facility_zero_volume"
	WarnAllocationClamped    = "allocation_ratio_clamped"
	WarnEoLShareSum          = "eol_share_sum"
	WarnEoLOverrideAlias     = "eol_override_alias"
	WarnTransportModeUnknown = "transport_mode_unknown"
	WarnAllocationsCarried   = "allocations_carried_forward"
	WarnDuplicateMaterial    = "duplicate_material"
	WarnReconciliation       = "reconciliation_discrepancy"
	WarnPersistFailed        = "persist_failed"
)

// Warning is a non-fatal condition recorded on a calculation run.
type Warning struct {
	Code    string `json:"code"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// Warnings is a concurrency-safe warning collector.
type Warnings struct {
	mu    sync.Mutex
	items []Warning
}

// Add records one or more warnings.
func (w *Warnings) Add(items ...Warning) {
	if len(items) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, items...)
}

// List returns a copy of the recorded warnings in insertion order.
func (w *Warnings) List() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Warning, len(w.items))
	copy(out, w.items)
	return out
}

// Len returns the number of recorded warnings.
func (w *Warnings) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}
