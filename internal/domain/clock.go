package domain

import "github.com/jonboulle/clockwork"

// clock is the time source for ObservatoryProducts.ProcessedAt. The stamp
// marks when a run derived the products, not the span of the observations.
// It is published as S3 object metadata and as a Kafka message header.
var clock = clockwork.NewRealClock()

// SetClock replaces the processing-time source, typically with a
// clockwork.FakeClock so that derived products compare byte for byte across
// runs. A nil clock restores wall time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
