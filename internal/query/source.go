package query

import (
	"context"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Filter narrows what a data source reads. Filters may need to resolve
// external state (metric dictionaries, tag indexes) before the query
// runs, hence the explicit initialization step.
type Filter interface {
	Initialize(ctx context.Context) error
}

// DataSourceConfig is a NodeConfig describing a time-series data
// source, the leaf of the execution graph and the target of push-down.
type DataSourceConfig interface {
	NodeConfig

	// SourceID returns the factory key of the backing store.
	SourceID() string

	// Filter returns the source filter, or nil when unfiltered.
	Filter() Filter

	// PushDownNodes returns the operator configs folded into this
	// source, nearest to the source first.
	PushDownNodes() []NodeConfig

	// ToBuilder returns a builder seeded with a copy of this config.
	ToBuilder() *SourceBuilder
}

// SourceConfig is the concrete DataSourceConfig.
type SourceConfig struct {
	id            string
	typ           string
	sources       []string
	sourceID      string
	filter        Filter
	pushDownNodes []NodeConfig
}

// ID implements NodeConfig.
func (c *SourceConfig) ID() string { return c.id }

// Type implements NodeConfig.
func (c *SourceConfig) Type() string { return c.typ }

// Sources implements NodeConfig.
func (c *SourceConfig) Sources() []string { return c.sources }

// PushDown implements NodeConfig. Data sources are the push-down
// target, never a candidate themselves.
func (c *SourceConfig) PushDown() bool { return false }

// Joins implements NodeConfig.
func (c *SourceConfig) Joins() bool { return false }

// SourceID implements DataSourceConfig.
func (c *SourceConfig) SourceID() string { return c.sourceID }

// Filter implements DataSourceConfig.
func (c *SourceConfig) Filter() Filter { return c.filter }

// PushDownNodes implements DataSourceConfig.
func (c *SourceConfig) PushDownNodes() []NodeConfig { return c.pushDownNodes }

// BuildHashCode implements NodeConfig. The hash covers the folded
// push-down nodes, so a rebuilt source after push-down is a distinct
// identity from the original.
func (c *SourceConfig) BuildHashCode() uint64 {
	d := xxhash.New()
	hashOperator(d, c.id, c.typ, c.sources, false, false)
	writeString(d, c.sourceID)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(c.pushDownNodes)))
	d.Write(buf[:])
	for _, n := range c.pushDownNodes {
		binary.LittleEndian.PutUint64(buf[:], n.BuildHashCode())
		d.Write(buf[:])
	}
	return d.Sum64()
}

// ToBuilder implements DataSourceConfig.
func (c *SourceConfig) ToBuilder() *SourceBuilder {
	return &SourceBuilder{cfg: SourceConfig{
		id:            c.id,
		typ:           c.typ,
		sources:       append([]string(nil), c.sources...),
		sourceID:      c.sourceID,
		filter:        c.filter,
		pushDownNodes: append([]NodeConfig(nil), c.pushDownNodes...),
	}}
}

// SourceBuilder assembles a SourceConfig.
type SourceBuilder struct {
	cfg SourceConfig
}

// NewSource starts a builder for a data source with the given id.
func NewSource(id string) *SourceBuilder {
	return &SourceBuilder{cfg: SourceConfig{id: id}}
}

// Type sets the operator type.
func (b *SourceBuilder) Type(t string) *SourceBuilder {
	b.cfg.typ = t
	return b
}

// Sources sets the upstream source ids consumed by the source node.
func (b *SourceBuilder) Sources(sources ...string) *SourceBuilder {
	b.cfg.sources = sources
	return b
}

// SourceID sets the factory key of the backing store.
func (b *SourceBuilder) SourceID(id string) *SourceBuilder {
	b.cfg.sourceID = id
	return b
}

// Filter sets the source filter.
func (b *SourceBuilder) Filter(f Filter) *SourceBuilder {
	b.cfg.filter = f
	return b
}

// PushDownNodes sets the folded operator configs, nearest first.
func (b *SourceBuilder) PushDownNodes(nodes []NodeConfig) *SourceBuilder {
	b.cfg.pushDownNodes = nodes
	return b
}

// Build returns the finished config as a fresh pointer.
func (b *SourceBuilder) Build() *SourceConfig {
	cfg := b.cfg
	cfg.sources = append([]string(nil), b.cfg.sources...)
	cfg.pushDownNodes = append([]NodeConfig(nil), b.cfg.pushDownNodes...)
	return &cfg
}
