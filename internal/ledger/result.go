package ledger

import "context"

// Result is what an editor hands back after a mutation. Reload nil or true asks the controller to
// refetch everything; false asks it to merge UpdatedTree within Scope.
type Result struct {
	Reload             *bool  `json:"reload,omitempty"`
	Source             string `json:"source"`
	NewEntity          any    `json:"newEntity,omitempty"`
	UpdatedTree        *Tree  `json:"-"`
	Scope              Scope  `json:"-"`
	ShouldClearFilters bool   `json:"shouldClearFilters,omitempty"`
	ShouldResetForm    bool   `json:"shouldResetForm,omitempty"`
}

// NeedsReload reports whether the result asks for a full refetch.
func (r Result) NeedsReload() bool {
	return r.Reload == nil || *r.Reload
}

// Merge builds a result that merges updated within scope.
func Merge(source string, updated *Tree, scope Scope) Result {
	reload := false
	return Result{Reload: &reload, Source: source, UpdatedTree: updated, Scope: scope}
}

// ReloadAll builds a result that triggers a full refetch.
func ReloadAll(source string) Result {
	reload := true
	return Result{Reload: &reload, Source: source}
}

// Confirmer gates destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed always confirms.
var Confirmed Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// Declined never confirms.
var Declined Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })

// RequireConfirmation returns ErrConfirmationRequired unless c confirms prompt.
func RequireConfirmation(ctx context.Context, c Confirmer, prompt string) error {
	if c == nil || !c.Confirm(ctx, prompt) {
		return ErrConfirmationRequired
	}
	return nil
}
