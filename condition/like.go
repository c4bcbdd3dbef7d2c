package condition

import (
	"regexp"
	"strings"
	"sync"

	"github.com/docql/docql/row"
)

// likeCache memoizes compiled LIKE patterns; the same pattern is typically
// evaluated once per row of a scan, so recompiling per row would be
// wasteful for anything but trivial inputs.
var (
	likeCacheMu sync.Mutex
	likeCache   = map[string]*regexp.Regexp{}
)

func matchLike(left row.Value, pattern row.Value) (bool, error) {
	pat, ok := pattern.(string)
	if !ok {
		pat = row.ToString(pattern)
	}
	re, err := compileLike(pat)
	if err != nil {
		return false, err
	}
	return re.MatchString(row.ToString(left)), nil
}

func compileLike(pattern string) (*regexp.Regexp, error) {
	likeCacheMu.Lock()
	if re, ok := likeCache[pattern]; ok {
		likeCacheMu.Unlock()
		return re, nil
	}
	likeCacheMu.Unlock()

	re, err := regexp.Compile(likeToRegex(pattern))
	if err != nil {
		return nil, err
	}
	likeCacheMu.Lock()
	likeCache[pattern] = re
	likeCacheMu.Unlock()
	return re, nil
}

// likeToRegex translates a SQL LIKE pattern ('%' = any run of characters,
// '_' = exactly one character, '\' escapes the following wildcard as a
// literal — spec section 9 open question, resolved as recommended) into
// an anchored regular expression, escaping every other regex metacharacter
// so literal text in the pattern can't be mistaken for regex syntax.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
			}
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return b.String()
}
