package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Need help with setup issue", "need-help-with-setup-issue"},
		{"  Go 1.23: what's new?!  ", "go-1-23-what-s-new"},
		{"C++ & Rust -- interop", "c-rust-interop"},
		{"安装问题", ""},
		{"Mixed 中文 and ASCII", "mixed-and-ascii"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, slugify(c.in, 200), c.in)
	}
	assert.Equal(t, "abc", slugify("abc-def", 4))
}

func TestNormalizePage(t *testing.T) {
	page, limit := normalizePage(0, 0, DefaultCommentLimit)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultCommentLimit, limit)

	page, limit = normalizePage(3, 500, DefaultTopicLimit)
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageLimit, limit)
	assert.Equal(t, 200, offset(page, limit))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "100!%", escapeLike("100%"))
	assert.Equal(t, "a!_b!!c", escapeLike("a_b!c"))
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, splitTags(" "))
	assert.Equal(t, []string{"go", "web"}, splitTags("Go, web,,go"))
}
