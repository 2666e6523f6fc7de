// Package queryfile loads declarative query definition files. A file
// describes the logical execution graph the planner consumes: operator
// nodes, data sources and serialization options.
package queryfile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/tsquery/internal/ctxlog"
	"github.com/vk/tsquery/internal/query"
)

// DefaultSourceID is assumed for source blocks that do not name a
// backing store.
const DefaultSourceID = "memstore"

// Load parses the file at path into a query.
func Load(ctx context.Context, path string) (*query.TimeSeriesQuery, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse query file %s: %w", path, diags)
	}

	var qf queryFile
	if diags := gohcl.DecodeBody(file.Body, nil, &qf); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode query file %s: %w", path, diags)
	}

	graph := make([]query.NodeConfig, 0, len(qf.Nodes)+len(qf.Sources))
	for _, n := range qf.Nodes {
		graph = append(graph, query.NewOperator(n.Name).
			Type(n.Type).
			Sources(n.Sources...).
			PushDown(n.PushDown).
			Joins(n.Joins).
			Build())
	}
	for _, s := range qf.Sources {
		sourceID := s.SourceID
		if sourceID == "" {
			sourceID = DefaultSourceID
		}
		builder := query.NewSource(s.Name).
			SourceID(sourceID).
			Sources(s.Sources...)
		filter, err := decodeFilterTags(s)
		if err != nil {
			return nil, err
		}
		if filter != nil {
			builder.Filter(filter)
		}
		graph = append(graph, builder.Build())
	}

	var serdes []*query.SerdesConfig
	for _, s := range qf.Serdes {
		serdes = append(serdes, query.NewSerdesConfig(s.Filter...))
	}

	logger.Debug("Query file loaded.", "path", path,
		"nodes", len(qf.Nodes), "sources", len(qf.Sources), "serdes", len(serdes))
	return query.NewTimeSeriesQuery(graph, serdes...), nil
}

// decodeFilterTags evaluates the optional filter_tags expression into a
// tag filter. The expression must be an object of string values.
func decodeFilterTags(s *sourceBlock) (query.Filter, error) {
	if s.FilterTags == nil {
		return nil, nil
	}
	val, diags := s.FilterTags.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate filter_tags for source %s: %w", s.Name, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("filter_tags for source %s must be an object, got %s", s.Name, val.Type().FriendlyName())
	}

	tags := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if v.Type() != cty.String {
			return nil, fmt.Errorf("filter_tags value for %q must be a string, got %s", k.AsString(), v.Type().FriendlyName())
		}
		tags[k.AsString()] = v.AsString()
	}
	return NewTagFilter(tags), nil
}
