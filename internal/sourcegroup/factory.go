package sourcegroup

import (
	"fmt"
	"sync"

	"github.com/dshills/srcgroup/internal/settings"
)

// Constructor builds a source group. It must not perform I/O.
type Constructor func(ctx Context, s *settings.SourceGroupSettings) SourceGroup

// Factory maps source group types to constructors.
type Factory struct {
	mu           sync.RWMutex
	constructors map[settings.Type]Constructor
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[settings.Type]Constructor)}
}

// DefaultFactory returns a factory with every built-in type registered.
func DefaultFactory() *Factory {
	f := NewFactory()
	for _, t := range settings.AllTypes {
		f.Register(t, builtin(t))
	}
	f.Register(settings.TypeUnloadable, NewUnloadable)
	return f
}

// builtin returns the constructor of a built-in type.
func builtin(t settings.Type) Constructor {
	switch t {
	case settings.TypeCEmpty, settings.TypeCppEmpty:
		return NewCxxEmpty
	case settings.TypeCxxCdb:
		return NewCxxCdb
	case settings.TypeCxxCodeblocks:
		return NewCxxCodeblocks
	case settings.TypeCxxSonargraph:
		return NewCxxSonargraph
	case settings.TypeJavaEmpty:
		return NewJavaEmpty
	case settings.TypeJavaMaven, settings.TypeJavaGradle:
		return NewJavaBuild
	case settings.TypePythonEmpty:
		return NewPythonEmpty
	case settings.TypeCustomCommand:
		return NewCustomCommand
	case settings.TypeUnloadable:
		return NewUnloadable
	default:
		panic(fmt.Sprintf("sourcegroup: no built-in constructor for %q", t))
	}
}

// Register sets the constructor for t, replacing any previous one.
func (f *Factory) Register(t settings.Type, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[t] = c
}

// Registered reports whether t has a constructor.
func (f *Factory) Registered(t settings.Type) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[t]
	return ok
}

// Create builds the source group for s. A type without a constructor never
// fails: the group degrades to an unloadable one that keeps its settings.
func (f *Factory) Create(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	f.mu.RLock()
	c, ok := f.constructors[s.Type]
	f.mu.RUnlock()
	if !ok {
		return NewUnloadable(ctx, s)
	}
	return c(ctx, s)
}

// CreateAll builds a source group for every group of p in order.
func (f *Factory) CreateAll(ctx Context, p *settings.ProjectSettings) []SourceGroup {
	groups := make([]SourceGroup, 0, len(p.Groups))
	for _, s := range p.Groups {
		groups = append(groups, f.Create(ctx, s))
	}
	return groups
}
