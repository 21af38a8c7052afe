package store

import "github.com/pkg/errors"

// InvariantCounts are the three counters self_check_invariants inspects;
// all three must be zero for the store to be considered healthy.
type InvariantCounts struct {
	OldPairs          int64
	OldPairSnapshots  int64
	OrphanTokens      int64
}

// SelfCheckInvariants reports how many rows violate the age-prune contract
// without mutating anything: pairs older than ageHours, their snapshots,
// and tokens referenced by no pair. A quiet store (after a prune) returns
// (0, 0, 0).
func (s *Store) SelfCheckInvariants(ageHours float64) (*InvariantCounts, error) {
	result, err := s.PruneByPairAge(ageHours, true, false)
	if err != nil {
		return nil, errors.Wrap(err, "self-check invariants")
	}
	return &InvariantCounts{
		OldPairs:         result.DeletedPairs,
		OldPairSnapshots: result.DeletedSnapshots,
		OrphanTokens:     result.DeletedTokens,
	}, nil
}
