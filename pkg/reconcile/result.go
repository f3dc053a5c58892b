package reconcile

import (
	"fmt"

	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/store"
)

// Change is one field rewrite applied to a document.
type Change struct {
	Location store.Location
	// Field is the rule that made the change.
	Field string
	// Path is the dotted document path written.
	Path    string
	Old     any
	New     any
	Deleted bool
}

// String returns a one-line description of the change.
func (c Change) String() string {
	if c.Deleted {
		return fmt.Sprintf("%s %s: deleted (was %v)", c.Location, c.Path, c.Old)
	}
	return fmt.Sprintf("%s %s: %v -> %v", c.Location, c.Path, c.Old, c.New)
}

// Outcome is the result of reconciling one record against one document.
type Outcome struct {
	// Record is "<type>: <name>".
	Record      string
	Location    store.Location
	Kind        Kind
	Changes     []Change
	Diagnostics []diagnostics.Diagnostic
}

// Changed reports whether any field was rewritten.
func (o *Outcome) Changed() bool {
	return len(o.Changes) > 0
}

// Fields returns the distinct fields that changed, in rule order.
func (o *Outcome) Fields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range o.Changes {
		if !seen[c.Field] {
			seen[c.Field] = true
			out = append(out, c.Field)
		}
	}
	return out
}
