package util

import (
	"strings"
	"testing"
)

func TestIsValidAddress(t *testing.T) {
	cases := []struct {
		name, addr string
		exp        bool
	}{
		{"empty", "", false},
		{"short_31", strings.Repeat("1", 31), false},
		{"min_32", strings.Repeat("1", 32), true},
		{"max_44", strings.Repeat("1", 44), true},
		{"long_45", strings.Repeat("1", 45), false},
		{"system", "11111111111111111111111111111111", true},
		{"token", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5DA", true},
		{"zero", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5D0", false},
		{"upperI", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5DI", false},
		{"upperO", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5DO", false},
		{"lowerL", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5Dl", false},
		{"dash", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5D-", false},
		{"space", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5D ", false},
		{"unicode", "TokenkegQfeZyiNwAJbNbGKPFXCWuBdf9Ss623VQ5Dé", false},
	}

	for _, c := range cases {
		if got := IsValidAddress(c.addr); got != c.exp {
			t.Errorf("[%s] IsValidAddress(%q)=%v expected:%v", c.name, c.addr, got, c.exp)
		}
	}
}
