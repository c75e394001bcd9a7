package statemachine

import "time"

// Recorder receives decision telemetry from a machine. The machine calls it
// inline on every decision, so implementations must be cheap and safe for
// concurrent use. A nil recorder on the machine disables telemetry entirely.
type Recorder interface {
	RecordDuration(resource, action string, elapsed time.Duration)
	RecordAuthorized(resource, action string)
	RecordRejected(resource, action, code string)
}
