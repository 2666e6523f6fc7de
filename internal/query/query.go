package query

// SerdesConfig describes how results leaving the pipeline are encoded
// and, through its filter, which nodes the sink consumes. Only the
// filter side matters to the planner.
type SerdesConfig struct {
	filters []string
}

// NewSerdesConfig creates a serdes config with the given sink filters.
// Each filter is either "nodeId" or "nodeId:sourceHint".
func NewSerdesConfig(filters ...string) *SerdesConfig {
	return &SerdesConfig{filters: filters}
}

// Filter returns the raw filter strings.
func (c *SerdesConfig) Filter() []string { return c.filters }

// TimeSeriesQuery is the user-submitted query: a logical execution
// graph of operator configs plus serialization options.
type TimeSeriesQuery struct {
	executionGraph []NodeConfig
	serdesConfigs  []*SerdesConfig
}

// NewTimeSeriesQuery wraps an execution graph and serdes configs into
// a query.
func NewTimeSeriesQuery(executionGraph []NodeConfig, serdesConfigs ...*SerdesConfig) *TimeSeriesQuery {
	return &TimeSeriesQuery{
		executionGraph: executionGraph,
		serdesConfigs:  serdesConfigs,
	}
}

// ExecutionGraph returns the operator configs in submission order.
func (q *TimeSeriesQuery) ExecutionGraph() []NodeConfig { return q.executionGraph }

// SerdesConfigs returns the serialization configs, possibly empty.
func (q *TimeSeriesQuery) SerdesConfigs() []*SerdesConfig { return q.serdesConfigs }
