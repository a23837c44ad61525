package partner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSplitRatio is returned for a ratio not shaped like "A:B" with
// positive integer shares.
var ErrInvalidSplitRatio = errors.New("invalid split ratio, expected \"A:B\"")

// ParseRatio splits an "A:B" ratio into its two integer shares. A ratio always
// reads "my share : their share" from the owning user's perspective.
func ParseRatio(ratio string) (mine int, theirs int, err error) {
	parts := strings.Split(strings.TrimSpace(ratio), ":")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidSplitRatio
	}
	mine, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, ErrInvalidSplitRatio
	}
	theirs, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, ErrInvalidSplitRatio
	}
	if mine <= 0 || theirs <= 0 {
		return 0, 0, ErrInvalidSplitRatio
	}
	return mine, theirs, nil
}

// InvertRatio flips a ratio to the partner's perspective: "3:2" becomes "2:3".
// A balanced ratio like "1:1" is its own inverse.
func InvertRatio(ratio string) (string, error) {
	mine, theirs, err := ParseRatio(ratio)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", theirs, mine), nil
}
