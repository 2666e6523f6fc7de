// Package plan contains the query planner. Given a pipeline context
// carrying a user query, the planner validates the logical execution
// graph, lets operator factories rewrite it, folds push-down capable
// operators into their data sources, computes the result ids the sink
// will observe, and materializes and initializes the executor graph in
// dependency order.
package plan
