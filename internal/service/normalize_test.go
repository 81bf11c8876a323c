package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Biceps brachii", "biceps brachii"},
		{"  Biceps   BRACHII ", "biceps brachii"},
		{"206", "206"},
		{"\tA\n B ", "a b"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeAnswer(c.in), "input %q", c.in)
	}
}
