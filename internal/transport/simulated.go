package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SimulatedTransport pretends to deliver messages. It satisfies both
// EmailTransport and SMSTransport and is meant for local runs and demos.
type SimulatedTransport struct {
	successRate float64 // 0.0 to 1.0
	maxLatency  time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulatedTransport creates a simulated transport.
// successRate is clamped to [0, 1].
func NewSimulatedTransport(successRate float64, maxLatency time.Duration) *SimulatedTransport {
	if successRate < 0.0 {
		successRate = 0.0
	}
	if successRate > 1.0 {
		successRate = 1.0
	}

	return &SimulatedTransport{
		successRate: successRate,
		maxLatency:  maxLatency,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SendEmail implements EmailTransport
func (s *SimulatedTransport) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return s.send(ctx, "email", to)
}

// SendSMS implements SMSTransport
func (s *SimulatedTransport) SendSMS(ctx context.Context, to, body string) error {
	return s.send(ctx, "SMS", to)
}

func (s *SimulatedTransport) send(ctx context.Context, channelType, to string) error {
	s.mu.Lock()
	var latency time.Duration
	if s.maxLatency > 0 {
		latency = time.Duration(s.rand.Int63n(int64(s.maxLatency)))
	}
	success := s.rand.Float64() < s.successRate
	failure := simulatedFailures[s.rand.Intn(len(simulatedFailures))]
	s.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if !success {
		return fmt.Errorf("failed to send %s to %s: %s", channelType, to, failure)
	}
	return nil
}

var simulatedFailures = []string{
	"network timeout",
	"invalid recipient",
	"rate limit exceeded",
	"service temporarily unavailable",
	"insufficient balance",
}
