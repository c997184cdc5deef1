package respcache_test

import (
	"testing"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/respcache"
	"github.com/stretchr/testify/assert"
)

var physics = domain.Coordinates{Section: "Class 10", Subject: "Physics", Chapter: "Light"}

func TestKeyDeterminism(t *testing.T) {
	t.Parallel()

	a := respcache.NewKey("test", physics).
		WithChapters([]string{"Light", "Electricity", "Magnetism"}).
		WithFingerprint(domain.Fingerprint([]string{"NEET", "JEE"})).
		WithInt("count", 10).
		WithParam("difficulty", "hard")

	b := respcache.NewKey("test", physics).
		WithParam("difficulty", "hard").
		WithInt("count", 10).
		WithFingerprint(domain.Fingerprint([]string{"jee", "neet"})).
		WithChapters([]string{"Magnetism", "Light", "Electricity", "Light"})

	assert.Equal(t, a.String(), b.String())
}

func TestKeyDiffersOnAnyCoordinate(t *testing.T) {
	t.Parallel()

	base := respcache.NewKey("notes", physics).
		WithChapters([]string{"a", "b"}).
		WithFingerprint("jee").
		WithInt("count", 5)

	variants := map[string]respcache.Key{
		"kind": respcache.NewKey("flashcards", physics).
			WithChapters([]string{"a", "b"}).WithFingerprint("jee").WithInt("count", 5),
		"section": respcache.NewKey("notes", domain.Coordinates{Section: "Class 11", Subject: "Physics", Chapter: "Light"}).
			WithChapters([]string{"a", "b"}).WithFingerprint("jee").WithInt("count", 5),
		"subject": respcache.NewKey("notes", domain.Coordinates{Section: "Class 10", Subject: "Chemistry", Chapter: "Light"}).
			WithChapters([]string{"a", "b"}).WithFingerprint("jee").WithInt("count", 5),
		"chapter": respcache.NewKey("notes", domain.Coordinates{Section: "Class 10", Subject: "Physics", Chapter: "Heat"}).
			WithChapters([]string{"a", "b"}).WithFingerprint("jee").WithInt("count", 5),
		"chapters": base.WithChapters([]string{"a", "c"}),
		"fewer chapters": base.WithChapters([]string{"a"}),
		"fingerprint": base.WithFingerprint("neet"),
		"no fingerprint": base.WithFingerprint(""),
		"count": base.WithInt("count", 6),
		"extra param": base.WithParam("lang", "en"),
	}

	for name, k := range variants {
		assert.NotEqual(t, base.String(), k.String(), "changing %s must change the key", name)
	}
}

func TestKeyEscapesSeparators(t *testing.T) {
	t.Parallel()

	a := respcache.NewKey("notes", domain.Coordinates{Section: "a|b", Subject: "c"})
	b := respcache.NewKey("notes", domain.Coordinates{Section: "a", Subject: "b|c"})
	assert.NotEqual(t, a.String(), b.String())

	c := respcache.NewKey("test", physics).WithChapters([]string{"x,y"})
	d := respcache.NewKey("test", physics).WithChapters([]string{"x", "y"})
	assert.NotEqual(t, c.String(), d.String())

	e := respcache.NewKey("notes", physics).WithFingerprint(domain.Fingerprint([]string{"jee,neet"}))
	f := respcache.NewKey("notes", physics).WithFingerprint(domain.Fingerprint([]string{"jee", "neet"}))
	assert.NotEqual(t, e.String(), f.String())
}

func TestKeyWithParamDoesNotAlias(t *testing.T) {
	t.Parallel()

	base := respcache.NewKey("test", physics).WithInt("count", 5)
	_ = base.WithInt("count", 10)
	assert.Contains(t, base.String(), "count=5")
}
