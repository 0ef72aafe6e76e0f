package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLPathEscape(t *testing.T) {
	for _, test := range []struct {
		in   string
		want string
	}{
		{"", ""},
		{"potato", "potato"},
		{"potato/sausage", "potato/sausage"},
		{"potato/sau sage", "potato/sau%20sage"},
		{"/docs/two words.txt", "/docs/two%20words.txt"},
	} {
		assert.Equal(t, test.want, URLPathEscape(test.in), "URLPathEscape(%q)", test.in)
	}
}
