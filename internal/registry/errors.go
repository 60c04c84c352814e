package registry

import (
	"errors"

	"github.com/robalyx/rowatch/pkg/utils"
)

var (
	// ErrNotFriend is returned when adding a best friend that is not a current friend.
	ErrNotFriend = errors.New("user is not a friend")
	// ErrNotFound is returned when removing an id that is not in the set.
	ErrNotFound = errors.New("id not found")
	// ErrInvalidID is returned for ids that are not positive integers.
	ErrInvalidID = utils.ErrInvalidID
)
