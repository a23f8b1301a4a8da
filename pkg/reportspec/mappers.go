package reportspec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/locvowork/tablereport/pkg/tablereport"
)

// ErrUnknownMapper is returned for a mapper name that has not been registered.
var ErrUnknownMapper = errors.New("unknown mapper")

// DefaultDateLayout is the layout used by the date mapper when none is given.
const DefaultDateLayout = "2006-01-02"

// MapperFactory builds a value mapper from its template parameters.
type MapperFactory func(m MapperTemplate) (tablereport.ValueMapper, error)

// MapperRegistry holds named mapper factories.
type MapperRegistry struct {
	mu        sync.RWMutex
	factories map[string]MapperFactory
}

// DefaultMappers is the registry used when none is given.
var DefaultMappers = NewMapperRegistry()

// NewMapperRegistry returns a registry holding the built-in mappers:
// seq, concat, default, date, upper and lower.
func NewMapperRegistry() *MapperRegistry {
	r := &MapperRegistry{factories: make(map[string]MapperFactory)}
	r.Register("seq", seqMapper)
	r.Register("concat", concatMapper)
	r.Register("default", defaultMapper)
	r.Register("date", dateMapper)
	r.Register("upper", stringMapper(strings.ToUpper))
	r.Register("lower", stringMapper(strings.ToLower))
	return r
}

// Register adds or replaces a mapper factory.
func (r *MapperRegistry) Register(name string, f MapperFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Has reports whether name is registered.
func (r *MapperRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered mapper names in sorted order.
func (r *MapperRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build creates the mapper described by m.
func (r *MapperRegistry) Build(m MapperTemplate) (tablereport.ValueMapper, error) {
	r.mu.RLock()
	f, ok := r.factories[m.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMapper, m.Name)
	}
	return f(m)
}

func seqMapper(MapperTemplate) (tablereport.ValueMapper, error) {
	return func(_ interface{}, index int, _ tablereport.DataRow) interface{} {
		return index + 1
	}, nil
}

func concatMapper(m MapperTemplate) (tablereport.ValueMapper, error) {
	if len(m.Fields) == 0 {
		return nil, fmt.Errorf("concat mapper requires fields")
	}
	sep := " "
	if m.Separator != nil {
		sep = *m.Separator
	}
	fields := append([]string(nil), m.Fields...)
	return func(_ interface{}, _ int, row tablereport.DataRow) interface{} {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			v, ok := row[f]
			if !ok || v == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(v))
		}
		return strings.Join(parts, sep)
	}, nil
}

func defaultMapper(m MapperTemplate) (tablereport.ValueMapper, error) {
	fallback := m.Value
	return func(v interface{}, _ int, _ tablereport.DataRow) interface{} {
		if v == nil {
			return fallback
		}
		if s, ok := v.(string); ok && s == "" {
			return fallback
		}
		return v
	}, nil
}

func dateMapper(m MapperTemplate) (tablereport.ValueMapper, error) {
	layout := m.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return func(v interface{}, _ int, _ tablereport.DataRow) interface{} {
		s, ok := v.(string)
		if !ok || s == "" {
			return v
		}
		t, err := time.Parse(layout, s)
		if err != nil {
			return v
		}
		return t
	}, nil
}

func stringMapper(fn func(string) string) MapperFactory {
	return func(MapperTemplate) (tablereport.ValueMapper, error) {
		return func(v interface{}, _ int, _ tablereport.DataRow) interface{} {
			if s, ok := v.(string); ok {
				return fn(s)
			}
			return v
		}, nil
	}
}
