// Package taskkey derives human-readable task keys of the form PREFIX-N.
// Keys are distinct from the opaque task id: the prefix carries the board or
// parent family and the numeric suffix orders creation within that family.
package taskkey

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// FallbackPrefix is used when no usable prefix can be derived.
const FallbackPrefix = "TASK"

// Prefix extracts the non-numeric leading segment of an existing key,
// joining all leading non-numeric dash-separated segments. A key like
// "GH-378-RUN" yields "GH"; absent or fully numeric keys yield the fallback.
func Prefix(key string) string {
	var parts []string
	for _, seg := range strings.Split(key, "-") {
		if seg == "" || isNumeric(seg) {
			break
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return FallbackPrefix
	}
	return strings.Join(parts, "-")
}

// Number returns the last run of digits found anywhere in the key. Keys
// without digits report ok=false and contribute nothing to max-suffix
// computations. The last run, not the first, is deliberate: prefixes may
// themselves contain digits without breaking ordering ("GH-378-RUN" -> 378).
func Number(key string) (int, bool) {
	start, end := -1, -1
	for i := len(key) - 1; i >= 0; i-- {
		if unicode.IsDigit(rune(key[i])) {
			if end == -1 {
				end = i + 1
			}
			start = i
		} else if end != -1 {
			break
		}
	}
	if end == -1 {
		return 0, false
	}
	n, err := strconv.Atoi(key[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextSubtaskKey derives the key for a new subtask of parentKey. The suffix
// is strictly greater than the parent's number and every sibling's number at
// the time of the call. When generating several subtasks in a loop, each
// returned key must be included in the next call's siblingKeys to keep the
// suffixes monotonic.
func NextSubtaskKey(parentKey string, siblingKeys []string) string {
	prefix := Prefix(parentKey)
	max := 0
	if n, ok := Number(parentKey); ok {
		max = n
	}
	if n := maxNumber(siblingKeys); n > max {
		max = n
	}
	return fmt.Sprintf("%s-%d", prefix, max+1)
}

// NextTopLevelKey derives the key for a new top-level task on a board. When
// the board already has keyed tasks their established prefix wins, so a
// board's key family survives renames; otherwise the prefix is the first
// three alphabetic characters of the board name, uppercased. The suffix is
// one past the highest existing number, zero-padded to three digits.
func NextTopLevelKey(boardName string, existingKeys []string) string {
	prefix := ""
	best := -1
	for _, k := range existingKeys {
		n, _ := Number(k)
		if n > best {
			best = n
			prefix = Prefix(k)
		}
	}
	if prefix == "" {
		prefix = BoardPrefix(boardName)
	}
	return fmt.Sprintf("%s-%03d", prefix, maxNumber(existingKeys)+1)
}

// BoardPrefix builds a key prefix from a board name: non-alphabetic runes
// stripped, first three letters, uppercased. Empty results fall back to TASK.
func BoardPrefix(boardName string) string {
	var b strings.Builder
	for _, r := range boardName {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() >= 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return FallbackPrefix
	}
	return b.String()
}

func maxNumber(keys []string) int {
	max := 0
	for _, k := range keys {
		if n, ok := Number(k); ok && n > max {
			max = n
		}
	}
	return max
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
