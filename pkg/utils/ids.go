package utils

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a path parameter is not a positive integer id.
var ErrInvalidID = errors.New("invalid id")

// ParseID parses a positive decimal Roblox id.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}

	return id, nil
}

// FormatID formats an id the way it is keyed in stored maps and sets.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
