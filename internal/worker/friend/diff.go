package friend

import "github.com/robalyx/rowatch/internal/storage/types"

// Diff compares two snapshots by id. added holds records of cur whose id is
// not in prev, in cur order; removed holds records of prev whose id is not
// in cur, in prev order.
func Diff(prev, cur []types.FriendRecord) (added, removed []types.FriendRecord) {
	prevIDs := make(map[int64]struct{}, len(prev))
	for _, record := range prev {
		prevIDs[record.ID] = struct{}{}
	}

	curIDs := make(map[int64]struct{}, len(cur))
	for _, record := range cur {
		curIDs[record.ID] = struct{}{}

		if _, ok := prevIDs[record.ID]; !ok {
			added = append(added, record)
		}
	}

	for _, record := range prev {
		if _, ok := curIDs[record.ID]; !ok {
			removed = append(removed, record)
		}
	}

	return added, removed
}
