package event

import (
	"context"
	"reflect"
	"strings"
)

// FilterFunc decides whether a listener sees an event.
type FilterFunc func(e *Event) bool

// Filtered wraps l so it is only called for events that pass f.
// Events that don't pass are skipped and propagation continues.
// A nil filter passes everything.
func Filtered(l Listener, f FilterFunc) Listener {
	if f == nil {
		return l
	}
	return ListenerFunc(func(ctx context.Context, e *Event) error {
		if !f(e) {
			return nil
		}
		return l.Handle(ctx, e)
	})
}

// FilterBySource only allows events from the specified source.
func FilterBySource(source string) FilterFunc {
	return func(e *Event) bool {
		return e.Metadata().Source == source
	}
}

// FilterBySourcePrefix only allows events from sources starting with prefix.
func FilterBySourcePrefix(prefix string) FilterFunc {
	return func(e *Event) bool {
		source := e.Metadata().Source
		return source != "" && strings.HasPrefix(source, prefix)
	}
}

// FilterBySources only allows events from one of the specified sources.
func FilterBySources(sources ...string) FilterFunc {
	sourceSet := make(map[string]bool, len(sources))
	for _, s := range sources {
		sourceSet[s] = true
	}
	return func(e *Event) bool {
		return sourceSet[e.Metadata().Source]
	}
}

// FilterExcludeSource excludes events from the specified source.
func FilterExcludeSource(source string) FilterFunc {
	return func(e *Event) bool {
		return e.Metadata().Source != source
	}
}

// FilterHasData only allows events whose payload has key.
func FilterHasData(key string) FilterFunc {
	return func(e *Event) bool {
		_, ok := e.data[key]
		return ok
	}
}

// FilterDataEquals only allows events whose payload value at key equals value.
func FilterDataEquals(key string, value any) FilterFunc {
	return func(e *Event) bool {
		v, ok := e.data[key]
		return ok && reflect.DeepEqual(v, value)
	}
}

// FilterAnd combines filters with AND logic. No filters passes everything.
func FilterAnd(filters ...FilterFunc) FilterFunc {
	return func(e *Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines filters with OR logic. No filters passes nothing.
func FilterOr(filters ...FilterFunc) FilterFunc {
	return func(e *Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter FilterFunc) FilterFunc {
	return func(e *Event) bool {
		return !filter(e)
	}
}
