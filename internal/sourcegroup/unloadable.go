package sourcegroup

import (
	"context"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/discovery"
	"github.com/dshills/srcgroup/internal/settings"
)

// Unloadable stands in for a group whose type this build does not know. It
// owns no files and produces no commands; its settings keep the raw keys so
// saving writes them back unchanged.
type Unloadable struct {
	base
}

// NewUnloadable builds an unloadable group.
func NewUnloadable(ctx Context, s *settings.SourceGroupSettings) SourceGroup {
	return &Unloadable{base{ctx: ctx, settings: s}}
}

func (g *Unloadable) AllSourceFilePaths() discovery.PathSet {
	return discovery.NewPathSet()
}

func (g *Unloadable) FilterToContainedFilePaths(discovery.PathSet) discovery.PathSet {
	return discovery.NewPathSet()
}

func (g *Unloadable) IndexerCommands(context.Context, discovery.PathSet) ([]command.Command, error) {
	return nil, nil
}
