package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHSN(t *testing.T) {
	cases := []struct {
		name     string
		explicit string
		hint     string
		fallback string
		want     string
	}{
		{"explicit code wins", "9988", "cotton", "", "9988"},
		{"explicit code is trimmed", "  9988  ", "", "", "9988"},
		{"blank explicit falls through", "   ", "cotton", "", HSNCotton},
		{"blend outranks cotton", "", "cotton blend fabric", "", HSNBlend},
		{"mixed counts as blend", "", "mixed poly cotton", "", HSNBlend},
		{"cotton outranks polyester", "", "cotton polyester", "", HSNCotton},
		{"polyester", "", "100% polyester", "", HSNPolyester},
		{"case insensitive hint", "", "COTTON shirt", "", HSNCotton},
		{"no hint match", "", "denim", "", HSNDefault},
		{"empty everything", "", "", "", HSNDefault},
		{"configured fallback wins over built-in default", "", "denim", "6205", "6205"},
		{"fallback does not shadow a hint match", "", "cotton", "6205", HSNCotton},
		{"blank fallback uses built-in default", "", "", "   ", HSNDefault},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveHSN(tc.explicit, tc.hint, tc.fallback))
		})
	}
}

func TestResolveHSN_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, HSNBlend, ResolveHSN("", "blend", ""))
	}
}
