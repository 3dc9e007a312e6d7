package trajectory

import (
	"slices"
	"strconv"
	"strings"
)

// TagKey is an ordered tag sequence used as an exact lookup key.
// ["a","b"] and ["b","a"] are different keys.
type TagKey []string

// NewTagKey copies tags into a TagKey.
func NewTagKey(tags []string) TagKey {
	return TagKey(cloneTags(tags))
}

// String returns the canonical form of the key. Each tag is written as
// "<len>:<tag>" so the encoding is injective: ["a,b"] and ["a","b"] never
// share a canonical form, and neither do [] and [""].
func (k TagKey) String() string {
	var sb strings.Builder
	for _, tag := range k {
		sb.WriteString(strconv.Itoa(len(tag)))
		sb.WriteByte(':')
		sb.WriteString(tag)
	}
	return sb.String()
}

// Equal reports whether both keys hold the same tags in the same order.
func (k TagKey) Equal(other TagKey) bool {
	return slices.Equal(k, other)
}

// Tags returns a copy of the key's tags.
func (k TagKey) Tags() []string {
	return cloneTags(k)
}
