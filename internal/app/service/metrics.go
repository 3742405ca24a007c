package service

// Metrics receives instrumentation events from the registry.
// Implementations can expose these to Prometheus.
type Metrics interface {
	LinkCreated(custom bool)
	CodeConflict()
	CodeCollision()
	LinkDeleted()
	ClickRecorded(outcome string)
	Totals(links, clicks int64)
}

// Click recording outcomes.
const (
	ClickStored  = "stored"
	ClickDropped = "dropped"
	ClickFailed  = "failed"
	ClickQueued  = "queued"
)

type nopMetrics struct{}

func (nopMetrics) LinkCreated(bool)     {}
func (nopMetrics) CodeConflict()        {}
func (nopMetrics) CodeCollision()       {}
func (nopMetrics) LinkDeleted()         {}
func (nopMetrics) ClickRecorded(string) {}
func (nopMetrics) Totals(int64, int64)  {}

// NopMetrics discards every event.
func NopMetrics() Metrics { return nopMetrics{} }
