package respcache

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// Key identifies a generation request by its semantic inputs. Two keys built
// from the same inputs render to the same string regardless of the order in
// which chapters or parameters were supplied.
type Key struct {
	kind        string
	coords      domain.Coordinates
	chapters    []string
	fingerprint string
	params      url.Values
}

// NewKey starts a key for the given request type and curriculum location.
func NewKey(kind string, coords domain.Coordinates) Key {
	return Key{kind: kind, coords: coords}
}

// WithChapters sets the chapter set. The list is copied, de-duplicated and
// sorted.
func (k Key) WithChapters(chapters []string) Key {
	k.chapters = domain.NormalizeSet(chapters, false)
	return k
}

// WithFingerprint sets the learner-profile fingerprint.
func (k Key) WithFingerprint(fp string) Key {
	k.fingerprint = fp
	return k
}

// WithParam adds a named parameter.
func (k Key) WithParam(name, value string) Key {
	params := url.Values{}
	for n, v := range k.params {
		params[n] = append([]string(nil), v...)
	}
	params.Set(name, value)
	k.params = params
	return k
}

// WithInt adds a named integer parameter such as a question count.
func (k Key) WithInt(name string, value int) Key {
	return k.WithParam(name, strconv.Itoa(value))
}

// String renders the key. Every component is query-escaped so separators in
// user-supplied values cannot make two different keys collide.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(url.QueryEscape(k.kind))
	for _, part := range []string{k.coords.Section, k.coords.Subject, k.coords.Chapter} {
		b.WriteByte('|')
		b.WriteString(url.QueryEscape(part))
	}

	b.WriteString("|ch=")
	for i, ch := range k.chapters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(url.QueryEscape(ch))
	}

	b.WriteString("|fp=")
	b.WriteString(url.QueryEscape(k.fingerprint))

	b.WriteString("|")
	// Encode sorts by parameter name.
	b.WriteString(k.params.Encode())
	return b.String()
}
