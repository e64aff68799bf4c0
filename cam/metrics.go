package cam

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()               {}
func (NoopMetrics) Miss()              {}
func (NoopMetrics) Write(WriteOutcome) {}
func (NoopMetrics) Integrity()         {}
func (NoopMetrics) Size(int)           {}

var _ Metrics = NoopMetrics{}
