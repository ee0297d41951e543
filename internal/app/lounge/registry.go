package lounge

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrUnknownDriver is returned when no driver is registered under a name.
var ErrUnknownDriver = errors.New("unknown lounge driver")

// Factory creates a driver. deviceName is the name shown on the screen for
// this integration, settings are the driver specific settings from config.
type Factory func(deviceName string, settings map[string]any) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register registers a driver factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDriver, "driver %q", name)
	}
	return factory, nil
}

// Open creates the driver registered under name.
func Open(name, deviceName string, settings map[string]any) (Driver, error) {
	factory, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	driver, err := factory(deviceName, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create driver %q", name)
	}
	return driver, nil
}

// Registered returns the names of all registered drivers, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
