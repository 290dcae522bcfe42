package listing

import (
	"fmt"

	"github.com/weiwei-tsao/myroom/apps/api/pkg/model"
)

// CanTransition checks an admin-initiated status change. Approved and rejected
// are reachable from every state, including themselves, so re-issuing the
// current status rewrites both copies. Pending is set only at creation.
func CanTransition(from, to model.Status) error {
	if !to.Valid() {
		return &ValidationError{Fields: []string{"status"}, Reason: fmt.Sprintf("unknown status %q", to)}
	}
	if to == model.StatusPending {
		return &ValidationError{Fields: []string{"status"}, Reason: "listings cannot return to pending"}
	}
	if from != "" && !from.Valid() {
		return &ValidationError{Fields: []string{"status"}, Reason: fmt.Sprintf("stored status %q is unknown", from)}
	}
	return nil
}
