package views

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintChangesWithContent(t *testing.T) {
	events := fixtureEvents()
	base := Fingerprint(events)

	assert.Equal(t, base, Fingerprint(fixtureEvents()))

	moved := fixtureEvents()
	moved[2].CreatedAt = moved[2].CreatedAt.Add(time.Second)
	assert.NotEqual(t, base, Fingerprint(moved))

	renamed := fixtureEvents()
	renamed[4].ID = "v5b"
	assert.NotEqual(t, base, Fingerprint(renamed))

	assert.NotEqual(t, Fingerprint(nil), base)
}

func TestKeyIncludesCriteria(t *testing.T) {
	start := testBase
	a := Key("summary", Criteria{Type: TypePost}, SortRecent, 42)
	b := Key("summary", Criteria{Type: TypePost, Start: &start}, SortRecent, 42)
	c := Key("summary", Criteria{Type: TypePost}, SortOldest, 42)
	d := Key("summary", Criteria{Type: TypePost}, SortRecent, 43)
	e := Key("events", Criteria{Type: TypePost}, SortRecent, 42)

	keys := map[string]struct{}{a: {}, b: {}, c: {}, d: {}, e: {}}
	assert.Len(t, keys, 5)
	assert.True(t, strings.HasPrefix(a, "summary|"))
	assert.Equal(t, a, Key("summary", Criteria{Type: TypePost, Search: "  "}, SortRecent, 42))
}

func TestKeyQuotesUserInput(t *testing.T) {
	a := Key("events", Criteria{UserID: "x|v=y"}, SortRecent, 42)
	b := Key("events", Criteria{UserID: "x", ViewableID: "y|v="}, SortRecent, 42)
	assert.NotEqual(t, a, b)

	c := Key("events", Criteria{Search: `a"|o=recent`}, SortOldest, 42)
	d := Key("events", Criteria{Search: "a"}, SortOrder(`"|o=oldest`), 42)
	assert.NotEqual(t, c, d)
}
