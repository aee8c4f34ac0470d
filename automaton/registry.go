package automaton

import (
	"fmt"
	"sort"
	"sync"

	"github.com/htapia/convoca/rules"
)

// Factory constructs a step function on demand.
type Factory func() (StepFunc, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a factory under name, replacing any previous entry.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Lookup builds the automaton registered under name.
func Lookup(name string) (StepFunc, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown automaton %q", name)
	}
	return f()
}

// Names lists registered automata in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("life-net", func() (StepFunc, error) { return MakeGameOfLife(), nil })
	for _, name := range rules.Presets() {
		name := name
		Register(name, func() (StepFunc, error) {
			table, err := rules.Preset(name)
			if err != nil {
				return nil, err
			}
			return MakeCA(table)
		})
	}
}
