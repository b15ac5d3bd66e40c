package manager

import (
	"time"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// defaultStableAfter is used when the policy leaves StableAfter unset.
const defaultStableAfter = time.Second

type endpointKey struct {
	id  string
	dir contracts.Direction
}

// endpoint tracks one id/direction pair across attaches. attempts and
// backoff survive a redial that succeeds, so flapping peers run out of
// attempts.
type endpoint struct {
	state      contracts.ConnectionState
	attempts   int
	backoff    time.Duration
	attachedAt time.Time
}

// endpointLocked returns the record for key, creating it. m.mu must be held.
func (m *Manager) endpointLocked(key endpointKey) *endpoint {
	ep, ok := m.endpoints[key]
	if !ok {
		ep = &endpoint{}
		m.endpoints[key] = ep
	}
	return ep
}

// State reports the lifecycle state of an endpoint.
func (m *Manager) State(id string, dir contracts.Direction) contracts.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ep, ok := m.endpoints[endpointKey{id, dir}]; ok {
		return ep.state
	}
	return contracts.Unknown
}

// markAttachedLocked records a new device for key. m.mu must be held.
func (m *Manager) markAttachedLocked(key endpointKey) {
	ep := m.endpointLocked(key)
	ep.state = contracts.Attached
	ep.attachedAt = time.Now()
}

// markDetached records a deliberate detach, which also forgives past attempts.
func (m *Manager) markDetached(key endpointKey) {
	m.mu.Lock()
	ep := m.endpointLocked(key)
	ep.state = contracts.Detached
	ep.attempts = 0
	ep.backoff = 0
	m.mu.Unlock()
}

// redial reopens an endpoint that dropped on its own. The first attempt waits
// BaseBackoff and every attempt doubles the wait. Attempts accumulate across
// successful redials until a device stays attached for StableAfter; once
// MaxAttempts is reached the endpoint is abandoned.
func (m *Manager) redial(key endpointKey) {
	policy := m.opts.ReconnectPolicy

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ep := m.endpointLocked(key)
	if time.Since(ep.attachedAt) >= policy.StableAfter {
		ep.attempts = 0
		ep.backoff = 0
	}
	if ep.attempts >= policy.MaxAttempts {
		ep.state = contracts.Abandoned
		m.mu.Unlock()
		m.abandoned(key, policy.MaxAttempts)
		return
	}
	ep.state = contracts.Redialing
	m.redials.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.redials.Done()

		for {
			m.mu.Lock()
			if ep.state != contracts.Redialing {
				// Attached or detached by the caller meanwhile.
				m.mu.Unlock()
				return
			}
			if ep.attempts >= policy.MaxAttempts {
				ep.state = contracts.Abandoned
				m.mu.Unlock()
				m.abandoned(key, policy.MaxAttempts)
				return
			}
			ep.attempts++
			attempt := ep.attempts
			backoff := ep.backoff
			if backoff <= 0 {
				backoff = policy.BaseBackoff
			}
			ep.backoff = backoff * 2
			m.mu.Unlock()

			timer := time.NewTimer(backoff)
			select {
			case <-m.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			stream, err := m.opts.Redialer(m.ctx, key.id, key.dir)
			if err == nil {
				m.logger.Info("MIDI device reconnected",
					m.logger.Field().String("deviceID", key.id),
					m.logger.Field().String("direction", key.dir.String()),
					m.logger.Field().Int("attempt", attempt))
				if key.dir == contracts.Input {
					m.AttachInput(key.id, stream)
				} else {
					m.AttachOutput(key.id, stream)
				}
				return
			}

			m.logger.Warn("MIDI device redial failed",
				m.logger.Field().String("deviceID", key.id),
				m.logger.Field().Int("attempt", attempt),
				m.logger.Field().Error("error", err))
		}
	}()
}

func (m *Manager) abandoned(key endpointKey, attempts int) {
	m.logger.Error("MIDI device abandoned after redial attempts",
		m.logger.Field().String("deviceID", key.id),
		m.logger.Field().String("direction", key.dir.String()),
		m.logger.Field().Int("attempts", attempts))
}
