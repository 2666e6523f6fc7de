package query

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// NodeConfig is the declarative description of a single operator in the
// execution graph. Implementations must be pointer types so configs can
// serve as graph vertices and map keys.
type NodeConfig interface {
	// ID returns the unique identifier of this node within a query.
	ID() string

	// Type returns the operator type used for factory lookup. May be
	// empty, in which case the ID doubles as the factory key.
	Type() string

	// Sources returns the IDs of the nodes this operator consumes.
	Sources() []string

	// PushDown reports whether this operator may be folded into a
	// downstream data source.
	PushDown() bool

	// Joins reports whether this operator merges multiple results into
	// one, terminating serialization source recursion.
	Joins() bool

	// BuildHashCode returns a stable 64 bit hash over the semantic
	// identity of the config. Two configs with equal hashes are treated
	// as the same node when materializing executors.
	BuildHashCode() uint64
}

// OperatorConfig is the concrete NodeConfig for ordinary operators.
type OperatorConfig struct {
	id       string
	typ      string
	sources  []string
	pushDown bool
	joins    bool
}

// ID implements NodeConfig.
func (c *OperatorConfig) ID() string { return c.id }

// Type implements NodeConfig.
func (c *OperatorConfig) Type() string { return c.typ }

// Sources implements NodeConfig.
func (c *OperatorConfig) Sources() []string { return c.sources }

// PushDown implements NodeConfig.
func (c *OperatorConfig) PushDown() bool { return c.pushDown }

// Joins implements NodeConfig.
func (c *OperatorConfig) Joins() bool { return c.joins }

// BuildHashCode implements NodeConfig.
func (c *OperatorConfig) BuildHashCode() uint64 {
	d := xxhash.New()
	hashOperator(d, c.id, c.typ, c.sources, c.pushDown, c.joins)
	return d.Sum64()
}

// ToBuilder returns a builder seeded with a copy of this config.
func (c *OperatorConfig) ToBuilder() *OperatorBuilder {
	return &OperatorBuilder{cfg: OperatorConfig{
		id:       c.id,
		typ:      c.typ,
		sources:  append([]string(nil), c.sources...),
		pushDown: c.pushDown,
		joins:    c.joins,
	}}
}

// OperatorBuilder assembles an OperatorConfig.
type OperatorBuilder struct {
	cfg OperatorConfig
}

// NewOperator starts a builder for an operator with the given id.
func NewOperator(id string) *OperatorBuilder {
	return &OperatorBuilder{cfg: OperatorConfig{id: id}}
}

// ID overrides the node id.
func (b *OperatorBuilder) ID(id string) *OperatorBuilder {
	b.cfg.id = id
	return b
}

// Type sets the operator type.
func (b *OperatorBuilder) Type(t string) *OperatorBuilder {
	b.cfg.typ = t
	return b
}

// Sources sets the upstream source ids consumed by the operator.
func (b *OperatorBuilder) Sources(sources ...string) *OperatorBuilder {
	b.cfg.sources = sources
	return b
}

// PushDown marks the operator as eligible for push-down.
func (b *OperatorBuilder) PushDown(v bool) *OperatorBuilder {
	b.cfg.pushDown = v
	return b
}

// Joins marks the operator as a joiner.
func (b *OperatorBuilder) Joins(v bool) *OperatorBuilder {
	b.cfg.joins = v
	return b
}

// Build returns the finished config as a fresh pointer.
func (b *OperatorBuilder) Build() *OperatorConfig {
	cfg := b.cfg
	cfg.sources = append([]string(nil), b.cfg.sources...)
	return &cfg
}

// hashOperator feeds the shared operator attributes into a digest.
// Field values are length-prefixed so adjacent strings cannot collide.
func hashOperator(d *xxhash.Digest, id, typ string, sources []string, pushDown, joins bool) {
	writeString(d, id)
	writeString(d, typ)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(sources)))
	d.Write(buf[:])
	for _, s := range sources {
		writeString(d, s)
	}
	d.Write([]byte{boolByte(pushDown), boolByte(joins)})
}

func writeString(d *xxhash.Digest, s string) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
	d.Write(buf[:])
	d.WriteString(s)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
