package submission

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// simulatedHistory is how many recent envelopes a SimulatedChannel keeps.
const simulatedHistory = 32

// ErrSimulatedFailure is returned when the simulated channel rolls a failure.
var ErrSimulatedFailure = errors.New("submission: simulated delivery failure")

// SimulatedChannel stands in for a real backend in development. It waits
// for Delay and then fails with probability FailureRate. Only the most
// recent envelopes are kept, without inline attachment bytes.
type SimulatedChannel struct {
	delay       time.Duration
	failureRate float64
	roll        func() float64

	mu        sync.Mutex
	delivered []Envelope
}

// NewSimulatedChannel builds a simulated channel. failureRate is clamped to
// [0, 1].
func NewSimulatedChannel(delay time.Duration, failureRate float64) *SimulatedChannel {
	if delay < 0 {
		delay = 0
	}
	failureRate = min(max(failureRate, 0), 1)
	return &SimulatedChannel{delay: delay, failureRate: failureRate, roll: rand.Float64}
}

// Name implements Channel.
func (c *SimulatedChannel) Name() string { return "simulated" }

// Deliver implements Channel.
func (c *SimulatedChannel) Deliver(ctx context.Context, env Envelope) error {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	if c.failureRate > 0 && c.roll() < c.failureRate {
		return ErrSimulatedFailure
	}
	if env.Attachment != nil {
		ref := *env.Attachment
		ref.Content = nil
		env.Attachment = &ref
	}
	c.mu.Lock()
	if len(c.delivered) == simulatedHistory {
		copy(c.delivered, c.delivered[1:])
		c.delivered = c.delivered[:simulatedHistory-1]
	}
	c.delivered = append(c.delivered, env)
	c.mu.Unlock()
	return nil
}

// Delivered returns a copy of the most recently accepted envelopes, oldest
// first.
func (c *SimulatedChannel) Delivered() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, len(c.delivered))
	copy(out, c.delivered)
	return out
}
