package jobstore

import (
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// Group matchers select the keys a pause, resume or listing operation applies
// to. Matching is case sensitive.

// GroupEquals matches one group exactly.
func GroupEquals(group string) GroupMatcher {
	return core.GroupEquals(group)
}

// GroupStartsWith matches groups with the prefix.
func GroupStartsWith(prefix string) GroupMatcher {
	return core.GroupStartsWith(prefix)
}

// GroupEndsWith matches groups with the suffix.
func GroupEndsWith(suffix string) GroupMatcher {
	return core.GroupEndsWith(suffix)
}

// GroupContains matches groups containing s.
func GroupContains(s string) GroupMatcher {
	return core.GroupContains(s)
}

// AnyGroup matches every group.
func AnyGroup() GroupMatcher {
	return core.AnyGroup()
}
