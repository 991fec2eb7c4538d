package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	got, err := Email("  TEST@Example.com  ")
	require.NoError(t, err)
	require.Equal(t, "test@example.com", got)

	invalid := []string{
		strings.Repeat("a", EmailMaxLen-11) + "@example.com",
		"     ",
		"",
		"a@b.c",
		"plainaddress",
		"@missinguser.com",
		"user@.com",
		"user@site..com",
		"us..er@site.com",
		"user@site.c",
		"user name@site.com",
	}
	for _, in := range invalid {
		_, err := Email(in)
		require.ErrorIs(t, err, errs.ErrInvalidInput, "input %q", in)
	}
}

func TestPassword(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"Valid@123", "aaaaaaaaaaaaA@", "Strong!Pass", "Pässwörd@1"} {
		got, err := Password(ok)
		require.NoError(t, err)
		require.Equal(t, ok, got)
	}

	invalid := []string{
		"Valid@123" + strings.Repeat("a", PwdMaxLen-8),
		"     ",
		"",
		"Valid@3",
		"Valid01234",
		"valid@1234",
		"VALID@1234",
		"Aa!" + strings.Repeat("😀", PwdMaxLen-3),
	}
	for _, in := range invalid {
		_, err := Password(in)
		require.ErrorIs(t, err, errs.ErrInvalidInput, "input %q", in)
		require.Contains(t, err.Error(), PasswordPolicyMsg)
	}
}

func TestStringField(t *testing.T) {
	t.Parallel()

	got, err := StringField("    My Desc  ", 0, 100, "desc")
	require.NoError(t, err)
	require.Equal(t, "My Desc", got)

	max := strings.Repeat("a", 100)
	got, err = StringField(max+"    ", 1, 100, "title")
	require.NoError(t, err)
	require.Equal(t, max, got)

	got, err = StringField("ééé", 3, 3, "title")
	require.NoError(t, err)
	require.Equal(t, "ééé", got)

	for _, tc := range []struct {
		in       string
		min, max int
	}{
		{strings.Repeat("a", 101), 0, 100},
		{"", 1, 100},
		{"a", 2, 100},
		{"        ", 1, 100},
	} {
		_, err := StringField(tc.in, tc.min, tc.max, "title")
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	}

	_, err = StringField("", 1, 100, "title")
	require.EqualError(t, err, "invalid input: title must be 1-100 characters")
}

func TestMeta(t *testing.T) {
	t.Parallel()

	m := Meta(model.ClientMeta{UserAgent: " curl/8\r\n", IP: "10.0.0.1"})
	require.Equal(t, "curl/8", m.UserAgent)
	require.Equal(t, "10.0.0.1", m.IP)

	long := Meta(model.ClientMeta{UserAgent: strings.Repeat("x", MaxUserAgentLen+10)})
	require.Len(t, long.UserAgent, MaxUserAgentLen)
}
