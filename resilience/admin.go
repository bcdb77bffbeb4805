package resilience

import (
	"context"
	"fmt"
)

// AllCircuits returns every tracked circuit still present in the cache,
// ordered by method key. Tracked keys whose model has expired are skipped.
func (r *Registry) AllCircuits(ctx context.Context) ([]CircuitModel, error) {
	keys, err := r.TrackedKeys(ctx)
	if err != nil {
		return nil, err
	}
	models := make([]CircuitModel, 0, len(keys))
	for _, key := range keys {
		m, ok, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			models = append(models, m)
		}
	}
	return models, nil
}

// Circuit returns the stored model for methodKey.
func (r *Registry) Circuit(ctx context.Context, methodKey string) (CircuitModel, error) {
	if methodKey == "" {
		return CircuitModel{}, ErrEmptyMethodKey
	}
	m, ok, err := r.load(ctx, methodKey)
	if err != nil {
		return CircuitModel{}, err
	}
	if !ok {
		return CircuitModel{}, fmt.Errorf("%w: %s", ErrUnknownCircuit, methodKey)
	}
	return m, nil
}

// OpenCircuit forces methodKey Open, creating its model from configuration
// if needed. The cooldown restarts from now.
func (r *Registry) OpenCircuit(ctx context.Context, methodKey string) (CircuitModel, error) {
	return r.update(ctx, methodKey, func(m *CircuitModel) bool {
		m.ErrorCount = m.LimitBreak
		m.LastFailedAttemptTimestamp = r.now()
		return true
	})
}

// CloseCircuit sets methodKey one error below its limit, so the next
// failure opens it again.
func (r *Registry) CloseCircuit(ctx context.Context, methodKey string) (CircuitModel, error) {
	return r.update(ctx, methodKey, func(m *CircuitModel) bool {
		m.ErrorCount = m.LimitBreak - 1
		return true
	})
}

// ClearCircuit removes methodKey's model and tracking entry.
func (r *Registry) ClearCircuit(ctx context.Context, methodKey string) error {
	if methodKey == "" {
		return ErrEmptyMethodKey
	}
	if err := r.layer.Evict(ctx, circuitDescriptor, methodKey); err != nil {
		return fmt.Errorf("resilience: clear circuit %s: %w", methodKey, err)
	}
	return r.untrack(ctx, methodKey)
}

// ClearAll removes every tracked model and the tracking set.
func (r *Registry) ClearAll(ctx context.Context) error {
	keys, err := r.TrackedKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := r.layer.Evict(ctx, circuitDescriptor, key); err != nil {
			return fmt.Errorf("resilience: clear circuit %s: %w", key, err)
		}
	}
	if err := r.layer.Evict(ctx, trackingDescriptor, ""); err != nil {
		return fmt.Errorf("resilience: clear tracking set: %w", err)
	}
	return nil
}

// OpenAll forces every tracked circuit that is not already Open to Open and
// returns how many changed.
func (r *Registry) OpenAll(ctx context.Context) (int, error) {
	return r.updateAll(ctx, func(m *CircuitModel) bool {
		if m.BreakStatus() == StateOpen {
			return false
		}
		m.ErrorCount = m.LimitBreak
		m.LastFailedAttemptTimestamp = r.now()
		return true
	})
}

// CloseAll lowers every Open circuit by one error and returns how many
// changed.
func (r *Registry) CloseAll(ctx context.Context) (int, error) {
	return r.updateAll(ctx, func(m *CircuitModel) bool {
		if m.BreakStatus() != StateOpen {
			return false
		}
		m.ErrorCount--
		return true
	})
}

func (r *Registry) update(ctx context.Context, methodKey string, mutate func(*CircuitModel) bool) (CircuitModel, error) {
	if methodKey == "" {
		return CircuitModel{}, ErrEmptyMethodKey
	}
	m, err := r.loadOrCreate(ctx, methodKey)
	if err != nil {
		return CircuitModel{}, err
	}
	before := m.BreakStatus()
	if !mutate(&m) {
		return m, nil
	}
	if err := r.save(ctx, &m); err != nil {
		return CircuitModel{}, err
	}
	r.logTransition(ctx, before, &m)
	return m, nil
}

func (r *Registry) updateAll(ctx context.Context, mutate func(*CircuitModel) bool) (int, error) {
	models, err := r.AllCircuits(ctx)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range models {
		m := &models[i]
		before := m.BreakStatus()
		if !mutate(m) {
			continue
		}
		if err := r.save(ctx, m); err != nil {
			return changed, err
		}
		r.logTransition(ctx, before, m)
		changed++
	}
	return changed, nil
}
