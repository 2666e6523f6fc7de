package queryfile

import "github.com/hashicorp/hcl/v2"

// nodeBlock is a `node "<id>" {}` block: one operator config.
type nodeBlock struct {
	Name     string   `hcl:"name,label"`
	Type     string   `hcl:"type,optional"`
	Sources  []string `hcl:"sources,optional"`
	PushDown bool     `hcl:"push_down,optional"`
	Joins    bool     `hcl:"joins,optional"`
}

// sourceBlock is a `source "<id>" {}` block: one data source config.
type sourceBlock struct {
	Name       string         `hcl:"name,label"`
	SourceID   string         `hcl:"source_id,optional"`
	Sources    []string       `hcl:"sources,optional"`
	FilterTags hcl.Expression `hcl:"filter_tags,optional"`
}

// serdesBlock is a `serdes {}` block carrying sink filters.
type serdesBlock struct {
	Filter []string `hcl:"filter,optional"`
}

// queryFile is the top-level structure of a query definition file.
type queryFile struct {
	Nodes   []*nodeBlock   `hcl:"node,block"`
	Sources []*sourceBlock `hcl:"source,block"`
	Serdes  []*serdesBlock `hcl:"serdes,block"`
}
