package plugin

import (
	"fmt"
	"slices"
	"sync"
)

var (
	catalogMu sync.Mutex
	catalog   = make(map[string]Plugin)
)

// Register makes a plugin available under a source name. Source names are
// what the "plugins" configuration map refers to; they are independent of
// Plugin.Name. Register is meant to be called from init and panics on a
// duplicate source.
func Register(source string, p Plugin) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, dup := catalog[source]; dup {
		panic("plugin: Register called twice for source " + source)
	}
	catalog[source] = p
}

// Source is a plugin together with the name it was registered under.
type Source struct {
	Name   string
	Plugin Plugin
}

// Sources returns the names of all registered sources, sorted.
func Sources() []string {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Select decides which sources to load. With discover set every registered
// source is a candidate; overrides then add (true) or remove (false) sources.
// The result is sorted by source name.
func Select(discover bool, overrides map[string]bool) ([]Source, error) {
	catalogMu.Lock()
	defer catalogMu.Unlock()

	chosen := make(map[string]bool)
	if discover {
		for name := range catalog {
			chosen[name] = true
		}
	}

	var unknown []string
	for name, enabled := range overrides {
		if _, ok := catalog[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		if enabled {
			chosen[name] = true
		} else {
			delete(chosen, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, fmt.Errorf("unknown plugins %q in configuration", unknown)
	}

	out := make([]Source, 0, len(chosen))
	for name := range chosen {
		out = append(out, Source{Name: name, Plugin: catalog[name]})
	}
	slices.SortFunc(out, func(a, b Source) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}
