package app

import (
	"github.com/vk/tsquery/internal/registry"
	"github.com/vk/tsquery/modules/memstore"
	"github.com/vk/tsquery/modules/operators"
)

// coreModules is the definitive list of factory modules compiled into
// the tsquery binary.
var coreModules = []registry.Module{
	&memstore.Module{},
	&operators.Module{},
}
