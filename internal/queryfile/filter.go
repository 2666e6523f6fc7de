package queryfile

import (
	"context"
	"fmt"

	"github.com/vk/tsquery/internal/ctxlog"
)

// TagFilter narrows a data source to series matching every tag pair.
type TagFilter struct {
	tags        map[string]string
	initialized bool
}

// NewTagFilter creates a filter over the given tag pairs.
func NewTagFilter(tags map[string]string) *TagFilter {
	return &TagFilter{tags: tags}
}

// Tags returns the tag pairs the filter matches on.
func (f *TagFilter) Tags() map[string]string { return f.tags }

// Initialized reports whether Initialize completed.
func (f *TagFilter) Initialized() bool { return f.initialized }

// Initialize implements query.Filter. Tag filters have no external
// state to resolve; initialization validates the pairs.
func (f *TagFilter) Initialize(ctx context.Context) error {
	for k := range f.tags {
		if k == "" {
			return fmt.Errorf("filter tag key must not be empty")
		}
	}
	f.initialized = true
	ctxlog.FromContext(ctx).Debug("Tag filter initialized.", "tags", len(f.tags))
	return nil
}
