package summarizer

import (
	"errors"
	"sync"

	"veritas-scraper/internal/observability/metrics"
)

// ErrNoKeys is returned when the pool was created without any API keys.
var ErrNoKeys = errors.New("no API keys configured")

// keyState tracks one API key's usage and failure history.
type keyState struct {
	key    string
	uses   int
	errors int
}

// KeyPool rotates across a set of LLM API keys. Every checkout counts as a
// use; a reported error advances the rotation so the next call starts on a
// different key. Healthiest selects the key with the fewest errors (ties
// broken by least used) for the final retry of a request.
type KeyPool struct {
	mu      sync.Mutex
	keys    []*keyState
	current int
}

// NewKeyPool creates a pool over the given keys.
func NewKeyPool(keys []string) *KeyPool {
	states := make([]*keyState, 0, len(keys))
	for _, k := range keys {
		states = append(states, &keyState{key: k})
	}
	return &KeyPool{keys: states}
}

// Size returns the number of keys in the pool.
func (p *KeyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Current returns the key at the rotation cursor and counts a use.
func (p *KeyPool) Current() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", ErrNoKeys
	}
	state := p.keys[p.current]
	state.uses++
	return state.key, nil
}

// ReportError records a failure against the key and rotates to the next one.
// Unknown keys are ignored.
func (p *KeyPool) ReportError(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, state := range p.keys {
		if state.key == key {
			state.errors++
			if i == p.current {
				p.current = (p.current + 1) % len(p.keys)
				metrics.RecordKeyRotation()
			}
			return
		}
	}
}

// Healthiest returns the key with the fewest errors, breaking ties by least
// used, and counts a use. The rotation cursor moves there so subsequent calls
// stay on the healthy key.
func (p *KeyPool) Healthiest() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", ErrNoKeys
	}

	best := 0
	for i, state := range p.keys {
		if state.errors < p.keys[best].errors ||
			(state.errors == p.keys[best].errors && state.uses < p.keys[best].uses) {
			best = i
		}
	}
	p.current = best
	p.keys[best].uses++
	return p.keys[best].key, nil
}
