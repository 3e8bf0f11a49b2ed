// Package resolve decides which side wins when a relative path exists
// under both a source root and the destination.
package resolve

import (
	"github.com/mergefiles/mergefiles/pkg/types"
)

// Decide returns the action for one conflicting path under the given
// policy. It performs no I/O: given identical inputs it always returns
// the identical decision.
//
// NewerWins compares modification times; an exact tie, or metadata
// missing on either side, retains the destination. That tie-break is
// deliberate: a merge must never overwrite nondeterministically.
func Decide(path types.RelPath, policy types.Policy, src, dst *types.FileMeta) types.Decision {
	switch policy {
	case types.AlwaysOverwrite:
		return types.Overwrite
	case types.NeverOverwrite:
		return types.Skip
	case types.NewerWins:
		if src == nil || dst == nil {
			return types.Skip
		}
		if src.ModTime.After(dst.ModTime) {
			return types.Overwrite
		}
		return types.Skip
	default:
		// Unknown policies never destroy destination data.
		return types.Skip
	}
}
