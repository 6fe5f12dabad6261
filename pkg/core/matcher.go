package core

import "strings"

// MatchOperator selects how a GroupMatcher compares group names.
type MatchOperator int

const (
	MatchEquals MatchOperator = iota
	MatchStartsWith
	MatchEndsWith
	MatchContains
	MatchAnything
)

func (o MatchOperator) String() string {
	switch o {
	case MatchEquals:
		return "equals"
	case MatchStartsWith:
		return "starts-with"
	case MatchEndsWith:
		return "ends-with"
	case MatchContains:
		return "contains"
	case MatchAnything:
		return "anything"
	default:
		return "unknown"
	}
}

// GroupMatcher filters job or trigger keys by their group.
type GroupMatcher struct {
	Operator MatchOperator
	Value    string
}

// GroupEquals matches exactly one group.
func GroupEquals(group string) GroupMatcher {
	return GroupMatcher{Operator: MatchEquals, Value: group}
}

// GroupStartsWith matches groups with the given prefix.
func GroupStartsWith(prefix string) GroupMatcher {
	return GroupMatcher{Operator: MatchStartsWith, Value: prefix}
}

// GroupEndsWith matches groups with the given suffix.
func GroupEndsWith(suffix string) GroupMatcher {
	return GroupMatcher{Operator: MatchEndsWith, Value: suffix}
}

// GroupContains matches groups containing the given substring.
func GroupContains(s string) GroupMatcher {
	return GroupMatcher{Operator: MatchContains, Value: s}
}

// AnyGroup matches every group.
func AnyGroup() GroupMatcher {
	return GroupMatcher{Operator: MatchAnything}
}

// Matches reports whether group satisfies the matcher.
func (m GroupMatcher) Matches(group string) bool {
	switch m.Operator {
	case MatchEquals:
		return group == m.Value
	case MatchStartsWith:
		return strings.HasPrefix(group, m.Value)
	case MatchEndsWith:
		return strings.HasSuffix(group, m.Value)
	case MatchContains:
		return strings.Contains(group, m.Value)
	case MatchAnything:
		return true
	default:
		return false
	}
}

// IsExact reports whether the matcher names a single group.
func (m GroupMatcher) IsExact() bool {
	return m.Operator == MatchEquals
}

func (m GroupMatcher) String() string {
	if m.Operator == MatchAnything {
		return m.Operator.String()
	}
	return m.Operator.String() + " " + m.Value
}
