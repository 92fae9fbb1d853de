package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0501234567", "+972501234567", true},
		{"050-123-4567", "+972501234567", true},
		{"050 123 4567", "+972501234567", true},
		{"+972501234567", "+972501234567", true},
		{"972501234567", "+972501234567", true},
		{"501234567", "+972501234567", true},
		{"+14155552671", "+14155552671", true},
		{"not a phone", "", false},
		{"12", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := NormalizePhone(tc.in, "972")
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseVCard(t *testing.T) {
	body := "BEGIN:VCARD\nVERSION:3.0\nFN:דנה כהן\nTEL;TYPE=CELL:+972 50-123-4567\nEND:VCARD"
	card, ok := ParseVCard(body, "972")
	require.True(t, ok)
	assert.Equal(t, "דנה כהן", card.Name)
	assert.Equal(t, "+972501234567", card.Phone)
}

func TestParseVCard_LocalNumberAndMissingName(t *testing.T) {
	body := "BEGIN:VCARD\nTEL:0501234567\nEND:VCARD"
	card, ok := ParseVCard(body, "972")
	require.True(t, ok)
	assert.Equal(t, "+972501234567", card.Phone)
	assert.Equal(t, card.Phone, card.Name)
}

func TestParseVCard_Rejects(t *testing.T) {
	_, ok := ParseVCard("hello there", "972")
	assert.False(t, ok)

	_, ok = ParseVCard("BEGIN:VCARD\nFN:No Phone\nEND:VCARD", "972")
	assert.False(t, ok)
}
