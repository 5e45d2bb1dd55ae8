package core

import "time"

// TimeProvider abstracts the clock so the engine can be tested with a fixed time.
// Transaction createdDate, validity-window checks and pending-void deadlines all
// read time through this interface.
type TimeProvider interface {
	Now() time.Time
}
