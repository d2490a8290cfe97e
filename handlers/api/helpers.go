package api

import (
	"fmt"
	"strconv"
	"strings"
)

// parseUID converts a string UID to uint32. UIDs start at 1.
func parseUID(uid string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(uid), 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%q: %w", uid, ErrInvalidUID)
	}
	return uint32(n), nil
}
