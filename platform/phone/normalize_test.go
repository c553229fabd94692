package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"local mobile", "(19) 99876-5432", "+5519998765432"},
		{"with country code", "5519998765432", "+5519998765432"},
		{"already e164", "+5519998765432", "+5519998765432"},
		{"short garbage keeps digits", "12-34", "+551234"},
		{"empty", "   ", ""},
		{"no digits", "abc", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.input); got != tc.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
