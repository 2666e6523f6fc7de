package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
)

type noopFactory struct{}

func (noopFactory) SetupGraph(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner exec.Planner) error {
	return nil
}

func (noopFactory) SupportsPushdown(cfg query.NodeConfig) bool { return false }

func (noopFactory) NewNode(ctx context.Context, pctx exec.PipelineContext, cfg query.NodeConfig) exec.Node {
	return nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	f := noopFactory{}
	r.Register("MemStore", f)

	assert.NotNil(t, r.QueryNodeFactory("memstore"), "keys are lowercased on registration")
	assert.NotNil(t, r.QueryNodeFactory("MEMSTORE"), "lookup is case-insensitive")
	assert.Nil(t, r.QueryNodeFactory("unknown"))
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New()
	r.Register("rate", noopFactory{})
	require.Panics(t, func() {
		r.Register("RATE", noopFactory{})
	})
}

func TestKeys(t *testing.T) {
	r := New()
	r.Register("rate", noopFactory{})
	r.Register("groupby", noopFactory{})
	assert.ElementsMatch(t, []string{"rate", "groupby"}, r.Keys())
}
