package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
)

// DefaultWeight is the weight of a provider with no particular preference.
const DefaultWeight = 50

var (
	// ErrIncompatible marks a provider as not applicable in the current environment.
	ErrIncompatible = errors.New("driver is incompatible")
	// ErrNoDriver is returned when no registered provider is compatible.
	ErrNoDriver = errors.New("no compatible driver")
)

// Provider builds a driver of type T. Providers compete: the compatible
// provider with the highest weight wins.
type Provider[T any] interface {
	ID() string
	Name() string
	DefaultWeight() int
	CheckCompatibility(ctx context.Context) error
	New(ctx context.Context) (T, error)
}

var (
	mu        sync.RWMutex
	providers = map[reflect.Type][]any{}
	weights   = map[string]int{}
)

// Register adds a provider for the driver interface T.
func Register[T any](p Provider[T]) {
	mu.Lock()
	defer mu.Unlock()
	t := reflect.TypeFor[T]()
	providers[t] = append(providers[t], p)
}

// SetWeight overrides the weight of the provider with the given ID.
func SetWeight(id string, weight int) {
	mu.Lock()
	defer mu.Unlock()
	weights[id] = weight
}

// ResetWeights drops every weight override.
func ResetWeights() {
	mu.Lock()
	defer mu.Unlock()
	weights = map[string]int{}
}

// Override returns the weight override for id, if any.
func Override(id string) (int, bool) {
	mu.RLock()
	defer mu.RUnlock()
	w, ok := weights[id]
	return w, ok
}

// Weight returns the effective weight of p, honouring overrides.
func Weight[T any](p Provider[T]) int {
	mu.RLock()
	defer mu.RUnlock()
	if w, ok := weights[p.ID()]; ok {
		return w
	}
	return p.DefaultWeight()
}

// List returns the providers registered for T, highest weight first.
// Ties keep registration order.
func List[T any]() []Provider[T] {
	mu.RLock()
	raw := providers[reflect.TypeFor[T]()]
	result := make([]Provider[T], 0, len(raw))
	for _, p := range raw {
		result = append(result, p.(Provider[T]))
	}
	mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return Weight(result[i]) > Weight(result[j])
	})
	return result
}

// Get returns a driver from the best compatible provider for T.
func Get[T any](ctx context.Context) (T, error) {
	var zero T
	for _, p := range List[T]() {
		if Weight(p) <= 0 {
			slog.Debug("driver disabled", "id", p.ID())
			continue
		}
		if err := p.CheckCompatibility(ctx); err != nil {
			slog.Debug("driver incompatible", "id", p.ID(), "err", err)
			continue
		}
		slog.Debug("driver selected", "id", p.ID(), "weight", Weight(p))
		return p.New(ctx)
	}
	return zero, fmt.Errorf("%w for %s", ErrNoDriver, reflect.TypeFor[T]())
}

// GetByID returns a driver from the provider with the given ID, failing
// if it is unknown or incompatible.
func GetByID[T any](ctx context.Context, id string) (T, error) {
	var zero T
	for _, p := range List[T]() {
		if p.ID() != id {
			continue
		}
		if err := p.CheckCompatibility(ctx); err != nil {
			return zero, fmt.Errorf("driver %s: %w", id, err)
		}
		return p.New(ctx)
	}
	return zero, fmt.Errorf("%w: unknown driver %q", ErrNoDriver, id)
}
