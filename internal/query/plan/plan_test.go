package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tsquery/internal/query"
	"github.com/vk/tsquery/internal/query/exec"
	"github.com/vk/tsquery/internal/registry"
)

func configIDs(cfgs []query.NodeConfig) []string {
	out := make([]string, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, c.ID())
	}
	return out
}

func TestPlanLinearPushDown(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{
		supports: map[string]bool{"groupby": true, "filter": true},
		rec:      rec,
	}, "ts")
	registerTypes(reg, &testFactory{rec: rec}, "groupby", "filter")

	source := query.NewSource("source").SourceID("ts").Build()
	group := query.NewOperator("group").Type("groupby").Sources("source").PushDown(true).Build()
	filter := query.NewOperator("filter").Type("filter").Sources("group").PushDown(true).Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{filter, group, source})

	p, sink := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	// Both operators folded, leaving the sink and the source.
	assert.Equal(t, 2, p.Graph().Len())
	srcNode := p.NodeForID("source")
	require.NotNil(t, srcNode)
	assert.True(t, p.Graph().HasEdge(sink, srcNode))
	assert.Nil(t, p.NodeForID("group"))
	assert.Nil(t, p.NodeForID("filter"))

	require.Len(t, p.Sources(), 1)
	pushDowns := p.Sources()[0].SourceConfig().PushDownNodes()
	assert.Equal(t, []string{"group", "filter"}, configIDs(pushDowns))

	assert.Equal(t, []string{"source"}, sortedSources(p))
}

func TestPlanPartialPushDown(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{
		supports: map[string]bool{"groupby": true, "filter": true},
		rec:      rec,
	}, "ts")
	registerTypes(reg, &testFactory{rec: rec}, "groupby", "filter")

	source := query.NewSource("source").SourceID("ts").Build()
	group := query.NewOperator("group").Type("groupby").Sources("source").PushDown(false).Build()
	filter := query.NewOperator("filter").Type("filter").Sources("group").PushDown(true).Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{filter, group, source})

	p, sink := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	// The operator adjacent to the source blocks the fold, so the whole
	// chain materializes and the source keeps its original config.
	require.Len(t, p.Sources(), 1)
	assert.Empty(t, p.Sources()[0].SourceConfig().PushDownNodes())

	assert.Equal(t, 4, p.Graph().Len())
	filterNode := p.NodeForID("filter")
	groupNode := p.NodeForID("group")
	srcNode := p.NodeForID("source")
	require.NotNil(t, filterNode)
	require.NotNil(t, groupNode)
	require.NotNil(t, srcNode)
	assert.True(t, p.Graph().HasEdge(sink, filterNode))
	assert.True(t, p.Graph().HasEdge(filterNode, groupNode))
	assert.True(t, p.Graph().HasEdge(groupNode, srcNode))

	assert.Equal(t, []string{"filter:source"}, sortedSources(p))
}

func TestPlanSinkFilterSelection(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{rec: rec}, "ts")
	registerTypes(reg, &testFactory{rec: rec}, "opa", "opb")

	source1 := query.NewSource("source1").SourceID("ts").Build()
	source2 := query.NewSource("source2").SourceID("ts").Build()
	a := query.NewOperator("a").Type("opa").Sources("source1").Build()
	b := query.NewOperator("b").Type("opb").Sources("source2").Build()
	q := query.NewTimeSeriesQuery(
		[]query.NodeConfig{a, b, source1, source2},
		query.NewSerdesConfig("a"),
	)

	p, _ := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	// a is wired to the context node, b stays an unwired root.
	aCfg := query.NodeConfig(a)
	assert.True(t, p.ConfigGraph().HasEdge(p.ContextNode(), aCfg))
	assert.False(t, p.ConfigGraph().HasEdge(p.ContextNode(), b))
	assert.Contains(t, p.roots, query.NodeConfig(b))

	// Only the filtered branch materializes.
	assert.NotNil(t, p.NodeForID("a"))
	assert.NotNil(t, p.NodeForID("source1"))
	assert.Nil(t, p.NodeForID("b"))
	assert.Nil(t, p.NodeForID("source2"))

	assert.Equal(t, []string{"a:source1"}, sortedSources(p))
}

func TestPlanUnsatisfiedFilter(t *testing.T) {
	reg := registry.New()
	registerTypes(reg, &testFactory{}, "ts")
	registerTypes(reg, &testFactory{}, "opa")

	source := query.NewSource("source").SourceID("ts").Build()
	a := query.NewOperator("a").Type("opa").Sources("source").Build()
	q := query.NewTimeSeriesQuery(
		[]query.NodeConfig{a, source},
		query.NewSerdesConfig("missing"),
	)

	p, _ := newTestPlanner(q, reg, nil)
	err := p.Plan(context.Background())
	var unsatisfied *UnsatisfiedFilterError
	require.ErrorAs(t, err, &unsatisfied)
	assert.Equal(t, "missing", unsatisfied.Key)
}

func TestPlanInvalidFilter(t *testing.T) {
	for _, filter := range []string{"", "a:b:c", ":hint"} {
		t.Run(filter, func(t *testing.T) {
			reg := registry.New()
			registerTypes(reg, &testFactory{}, "ts")
			source := query.NewSource("source").SourceID("ts").Build()
			q := query.NewTimeSeriesQuery(
				[]query.NodeConfig{source},
				query.NewSerdesConfig(filter),
			)

			p, _ := newTestPlanner(q, reg, nil)
			err := p.Plan(context.Background())
			var invalid *InvalidFilterError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, filter, invalid.Filter)
		})
	}
}

func TestPlanDuplicateID(t *testing.T) {
	reg := registry.New()
	registerTypes(reg, &testFactory{}, "ts", "opa")

	first := query.NewOperator("x").Type("opa").Build()
	second := query.NewOperator("x").Type("opa").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{first, second})

	p, _ := newTestPlanner(q, reg, nil)
	err := p.Plan(context.Background())
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.ID)
}

func TestPlanNoFactory(t *testing.T) {
	reg := registry.New()
	registerTypes(reg, &testFactory{}, "ts")

	source := query.NewSource("source").SourceID("ts").Build()
	a := query.NewOperator("a").Type("unregistered").Sources("source").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{a, source})

	p, _ := newTestPlanner(q, reg, nil)
	err := p.Plan(context.Background())
	var noFactory *NoFactoryError
	require.ErrorAs(t, err, &noFactory)
	assert.Equal(t, "unregistered", noFactory.Key)
}

func TestPlanNilExecutor(t *testing.T) {
	reg := registry.New()
	registerTypes(reg, &testFactory{}, "ts")
	registerTypes(reg, &testFactory{
		newNode: func(cfg query.NodeConfig) exec.Node { return nil },
	}, "opa")

	source := query.NewSource("source").SourceID("ts").Build()
	a := query.NewOperator("a").Type("opa").Sources("source").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{a, source})

	p, _ := newTestPlanner(q, reg, nil)
	err := p.Plan(context.Background())
	var nilNode *NilNodeError
	require.ErrorAs(t, err, &nilNode)
	assert.Equal(t, "a", nilNode.ID)
}

func TestPlanJoinNode(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{rec: rec}, "ts")
	registerTypes(reg, &testFactory{rec: rec}, "join", "top")

	src1 := query.NewSource("src1").SourceID("ts").Build()
	src2 := query.NewSource("src2").SourceID("ts").Build()
	join := query.NewOperator("join").Type("join").Joins(true).Sources("src1", "src2").Build()
	top := query.NewOperator("top").Type("top").Sources("join").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{top, join, src1, src2})

	p, sink := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	// Serialization recursion stops at the join; the non-terminal path
	// under the context node is prefixed.
	assert.Equal(t, []string{"top:join"}, sortedSources(p))

	// Leaves initialize before the join, the join before top. The sink
	// itself is initialized by its owner, not the planner.
	require.Equal(t, 4, len(rec.snapshot()))
	assert.Less(t, rec.indexOf("src1"), rec.indexOf("join"))
	assert.Less(t, rec.indexOf("src2"), rec.indexOf("join"))
	assert.Less(t, rec.indexOf("join"), rec.indexOf("top"))
	assert.Equal(t, 0, sink.initialized())
}

func TestPlanInitializeExactlyOnce(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{rec: rec}, "ts")
	registerTypes(reg, &testFactory{rec: rec}, "left", "right", "join")

	// Diamond: both branches feed from the same source.
	src := query.NewSource("src").SourceID("ts").Build()
	left := query.NewOperator("left").Type("left").Sources("src").Build()
	right := query.NewOperator("right").Type("right").Sources("src").Build()
	join := query.NewOperator("join").Type("join").Joins(true).Sources("left", "right").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{join, left, right, src})

	p, _ := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	srcNode := p.NodeForID("src").(*testSourceNode)
	assert.Equal(t, 1, srcNode.initialized())
	assert.Less(t, rec.indexOf("src"), rec.indexOf("left"))
	assert.Less(t, rec.indexOf("src"), rec.indexOf("right"))
}

func TestPlanFactoryRewriteConverges(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{rec: rec}, "ts", "rate")
	registerTypes(reg, &testFactory{
		rec: rec,
		setup: func(ctx context.Context, q *query.TimeSeriesQuery, cfg query.NodeConfig, planner exec.Planner) error {
			lowered := query.NewOperator(cfg.ID() + "_lowered").Type("rate").Sources(cfg.Sources()...).Build()
			return planner.Replace(cfg, lowered)
		},
	}, "expand")

	source := query.NewSource("source").SourceID("ts").Build()
	up := query.NewOperator("up").Type("expand").Sources("source").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{up, source})

	p, _ := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	assert.Nil(t, p.NodeForID("up"))
	require.NotNil(t, p.NodeForID("up_lowered"))
	for _, cfg := range p.ConfigGraph().Nodes() {
		assert.NotEqual(t, "expand", cfg.Type())
	}
}

func TestPlanPushDownIdempotent(t *testing.T) {
	rec := &recorder{}
	reg := registry.New()
	registerTypes(reg, &testFactory{
		supports: map[string]bool{"groupby": true, "filter": true},
		rec:      rec,
	}, "ts")
	registerTypes(reg, &testFactory{rec: rec}, "groupby", "filter")

	source := query.NewSource("source").SourceID("ts").Build()
	group := query.NewOperator("group").Type("groupby").Sources("source").PushDown(true).Build()
	filter := query.NewOperator("filter").Type("filter").Sources("group").PushDown(true).Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{filter, group, source})

	p, _ := newTestPlanner(q, reg, rec)
	require.NoError(t, p.Plan(context.Background()))

	before := p.ConfigGraph().Clone()
	require.NoError(t, p.runPushDowns(context.Background()))
	assert.True(t, p.ConfigGraph().Equal(before))

	require.Len(t, p.Sources(), 1)
	assert.Equal(t, []string{"group", "filter"},
		configIDs(p.Sources()[0].SourceConfig().PushDownNodes()))
}

func TestPlanOnlyOnce(t *testing.T) {
	reg := registry.New()
	registerTypes(reg, &testFactory{}, "ts")
	source := query.NewSource("source").SourceID("ts").Build()
	q := query.NewTimeSeriesQuery([]query.NodeConfig{source})

	p, _ := newTestPlanner(q, reg, nil)
	require.NoError(t, p.Plan(context.Background()))
	require.Error(t, p.Plan(context.Background()))
}
