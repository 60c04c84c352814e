package storage

// Dataset names a persisted document.
type Dataset string

const (
	FriendSnapshot Dataset = "friend-snapshot"
	FriendHistory  Dataset = "friend-history"
	LastOnline     Dataset = "last-online"
	BestFriends    Dataset = "best-friends"
	GameHistory    Dataset = "game-history"
	PinnedGames    Dataset = "pinned-games"
)

// Datasets lists every dataset in initialization order.
var Datasets = []Dataset{
	FriendSnapshot,
	FriendHistory,
	LastOnline,
	BestFriends,
	GameHistory,
	PinnedGames,
}

// Empty returns the empty container a dataset is created with.
func (d Dataset) Empty() []byte {
	if d == LastOnline {
		return []byte("{}")
	}

	return []byte("[]")
}
