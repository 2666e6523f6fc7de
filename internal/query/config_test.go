package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorBuilder(t *testing.T) {
	cfg := NewOperator("rate1").
		Type("rate").
		Sources("ds1", "ds2").
		PushDown(true).
		Joins(false).
		Build()

	assert.Equal(t, "rate1", cfg.ID())
	assert.Equal(t, "rate", cfg.Type())
	assert.Equal(t, []string{"ds1", "ds2"}, cfg.Sources())
	assert.True(t, cfg.PushDown())
	assert.False(t, cfg.Joins())
}

func TestToBuilderProducesModifiedCopy(t *testing.T) {
	orig := NewOperator("x").Type("rate").Sources("a").Build()
	modified := orig.ToBuilder().PushDown(true).Build()

	assert.NotSame(t, orig, modified)
	assert.False(t, orig.PushDown())
	assert.True(t, modified.PushDown())
	assert.Equal(t, orig.ID(), modified.ID())
	assert.Equal(t, orig.Sources(), modified.Sources())
}

func TestBuildHashCodeStability(t *testing.T) {
	build := func() *OperatorConfig {
		return NewOperator("x").Type("rate").Sources("a", "b").PushDown(true).Build()
	}
	assert.Equal(t, build().BuildHashCode(), build().BuildHashCode(),
		"hash must be content addressed, not identity based")
}

func TestBuildHashCodeSensitivity(t *testing.T) {
	base := NewOperator("x").Type("rate").Sources("a").Build()
	variants := []*OperatorConfig{
		NewOperator("y").Type("rate").Sources("a").Build(),
		NewOperator("x").Type("downsample").Sources("a").Build(),
		NewOperator("x").Type("rate").Sources("a", "b").Build(),
		NewOperator("x").Type("rate").Sources("a").PushDown(true).Build(),
		NewOperator("x").Type("rate").Sources("a").Joins(true).Build(),
	}
	for _, v := range variants {
		assert.NotEqual(t, base.BuildHashCode(), v.BuildHashCode())
	}

	// Length-prefixed fields: shifting a boundary must change the hash.
	ab := NewOperator("ab").Type("c").Build()
	a := NewOperator("a").Type("bc").Build()
	assert.NotEqual(t, ab.BuildHashCode(), a.BuildHashCode())
}

func TestSourceConfig(t *testing.T) {
	folded := NewOperator("group").Type("groupby").Build()
	cfg := NewSource("m1").
		SourceID("memstore").
		PushDownNodes([]NodeConfig{folded}).
		Build()

	assert.Equal(t, "m1", cfg.ID())
	assert.Equal(t, "memstore", cfg.SourceID())
	assert.False(t, cfg.PushDown())
	assert.False(t, cfg.Joins())
	require.Len(t, cfg.PushDownNodes(), 1)
	assert.Equal(t, "group", cfg.PushDownNodes()[0].ID())
}

func TestSourceHashCoversPushDowns(t *testing.T) {
	plain := NewSource("m1").SourceID("memstore").Build()
	rebuilt := plain.ToBuilder().
		PushDownNodes([]NodeConfig{NewOperator("group").Type("groupby").Build()}).
		Build()

	assert.NotEqual(t, plain.BuildHashCode(), rebuilt.BuildHashCode(),
		"a rebuilt source with folded operators is a new identity")
}

func TestTimeSeriesQuery(t *testing.T) {
	src := NewSource("m1").SourceID("memstore").Build()
	op := NewOperator("rate1").Type("rate").Sources("m1").Build()
	q := NewTimeSeriesQuery([]NodeConfig{op, src}, NewSerdesConfig("rate1:m1"))

	require.Len(t, q.ExecutionGraph(), 2)
	require.Len(t, q.SerdesConfigs(), 1)
	if diff := cmp.Diff([]string{"rate1:m1"}, q.SerdesConfigs()[0].Filter()); diff != "" {
		t.Fatalf("unexpected filters (-want +got):\n%s", diff)
	}
}
