package compare

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPatternCacheSize bounds the number of compiled LIKE/REGEX patterns
// kept in memory.
const DefaultPatternCacheSize = 256

type patternKey struct {
	kind       Comparator
	pattern    string
	ignoreCase bool
}

type patternCache struct {
	cache *lru.Cache[patternKey, *regexp.Regexp]
}

var patterns = newPatternCache(DefaultPatternCacheSize)

func newPatternCache(size int) *patternCache {
	if size <= 0 {
		size = DefaultPatternCacheSize
	}
	c, err := lru.New[patternKey, *regexp.Regexp](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &patternCache{cache: c}
}

// SetPatternCacheSize resizes the shared compiled pattern cache. Entries
// beyond the new size are evicted.
func SetPatternCacheSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("pattern cache size must be positive, got %d", size)
	}
	patterns.cache.Resize(size)
	return nil
}

// PatternCacheLen returns the number of compiled patterns currently cached.
func PatternCacheLen() int {
	return patterns.cache.Len()
}

func (p *patternCache) compile(kind Comparator, pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	key := patternKey{kind: kind, pattern: pattern, ignoreCase: ignoreCase}
	if re, ok := p.cache.Get(key); ok {
		return re, nil
	}

	expr := pattern
	if kind == Like {
		expr = GlobToRegexp(pattern)
	}
	flags := "(?s)"
	if ignoreCase {
		flags = "(?is)"
	}
	re, err := regexp.Compile(flags + "^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %v", ErrInvalidPattern, kind, pattern, err)
	}
	p.cache.Add(key, re)
	return re, nil
}

// GlobToRegexp translates a LIKE pattern into an unanchored regular
// expression: % matches any sequence (including the empty one), _ matches
// exactly one character and everything else is literal.
func GlobToRegexp(glob string) string {
	var sb strings.Builder
	sb.Grow(len(glob) + 8)
	literal := strings.Builder{}
	flush := func() {
		if literal.Len() > 0 {
			sb.WriteString(regexp.QuoteMeta(literal.String()))
			literal.Reset()
		}
	}
	for _, r := range glob {
		switch r {
		case '%':
			flush()
			sb.WriteString(".*")
		case '_':
			flush()
			sb.WriteString(".")
		default:
			literal.WriteRune(r)
		}
	}
	flush()
	return sb.String()
}
