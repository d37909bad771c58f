package semgrex

import (
	"sort"

	"github.com/pkg/errors"
)

// VariableStrings holds the substrings bound to regex capture variables (the "%name" part of
// a "/re/#1%name" attribute) during a match.
//
// Each variable carries a reference count of the searches currently depending on it; the value
// is cleared only once the count returns to zero.
type VariableStrings struct {
	slots map[string]*varSlot
}

type varSlot struct {
	val  string
	refs int
}

func NewVariableStrings() *VariableStrings {
	return &VariableStrings{
		slots: make(map[string]*varSlot),
	}
}

// String returns the value currently bound to the given variable.
func (vs *VariableStrings) String(name string) (string, bool) {
	slot := vs.slots[name]
	if slot == nil {
		return "", false
	}
	return slot.val, true
}

// Set binds name to val, or adds a reference if name is already bound to val.
//
// Binding a variable to a second, different value is a matcher fault and panics with ErrVariableConflict.
func (vs *VariableStrings) Set(name, val string) {
	slot := vs.slots[name]
	if slot == nil {
		vs.slots[name] = &varSlot{val: val, refs: 1}
		return
	}
	if slot.val != val {
		panic(errors.Wrapf(ErrVariableConflict, "%q is %q, not %q", name, slot.val, val))
	}
	slot.refs++
}

// Unset drops one reference to the given variable.
func (vs *VariableStrings) Unset(name string) {
	slot := vs.slots[name]
	if slot == nil {
		return
	}
	slot.refs--
	if slot.refs <= 0 {
		delete(vs.slots, name)
	}
}

// Names returns the bound variable names in sorted order.
func (vs *VariableStrings) Names() []string {
	names := make([]string, 0, len(vs.slots))
	for name := range vs.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (vs *VariableStrings) Len() int {
	return len(vs.slots)
}
