package clock

import (
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/core"
)

// RealTimeProvider implements the TimeProvider interface with real time operations
type RealTimeProvider struct{}

// NewRealTimeProvider creates a new real time provider
func NewRealTimeProvider() core.TimeProvider {
	return &RealTimeProvider{}
}

// Now returns the current time in UTC. Transaction dates are stored and
// compared in UTC throughout.
func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
