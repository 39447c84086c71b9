package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FollowList is the ordered, de-duplicated set of account ids a subscription
// is filtered to.
type FollowList []int64

// NewFollowList validates ids and drops duplicates, keeping first occurrence order.
func NewFollowList(ids []int64) (FollowList, error) {
	if len(ids) == 0 {
		return nil, &ConfigError{Err: ErrEmptyFollowList}
	}

	seen := make(map[int64]struct{}, len(ids))
	list := make(FollowList, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &ConfigError{Err: fmt.Errorf("%w: %d", ErrInvalidFollowID, id)}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		list = append(list, id)
	}
	return list, nil
}

// ParseFollowList parses ids separated by commas and/or whitespace.
func ParseFollowList(s string) (FollowList, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("%w: %q", ErrInvalidFollowID, f)}
		}
		ids = append(ids, id)
	}
	return NewFollowList(ids)
}

// Param renders the provider filter parameter.
func (l FollowList) Param() string {
	parts := make([]string, len(l))
	for i, id := range l {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (l FollowList) Clone() FollowList {
	if l == nil {
		return nil
	}
	out := make(FollowList, len(l))
	copy(out, l)
	return out
}
