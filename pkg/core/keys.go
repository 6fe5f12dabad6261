package core

// DefaultGroup is used when a key is created without a group.
const DefaultGroup = "DEFAULT"

// JobKey identifies a job within a scheduler instance.
type JobKey struct {
	Name  string
	Group string
}

// NewJobKey returns a JobKey, using DefaultGroup when group is empty.
func NewJobKey(name, group string) JobKey {
	if group == "" {
		group = DefaultGroup
	}
	return JobKey{Name: name, Group: group}
}

// String renders the key as the "name/group" record id.
func (k JobKey) String() string {
	return k.Name + "/" + k.Group
}

// TriggerKey identifies a trigger within a scheduler instance.
type TriggerKey struct {
	Name  string
	Group string
}

// NewTriggerKey returns a TriggerKey, using DefaultGroup when group is empty.
func NewTriggerKey(name, group string) TriggerKey {
	if group == "" {
		group = DefaultGroup
	}
	return TriggerKey{Name: name, Group: group}
}

// String renders the key as the "name/group" record id.
func (k TriggerKey) String() string {
	return k.Name + "/" + k.Group
}
