package duration

import "testing"

func TestFormat(t *testing.T) {
	testCases := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00"},
		{1, "00:01"},
		{59, "00:59"},
		{60, "01:00"},
		{272, "04:32"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86399, "23:59:59"},
		{86400, "1d 00:00"},
		{90061, "1d 01:01"},
		{2*86400 + 5*3600 + 30*60 + 59, "2d 05:30"},
		{12 * 86400, "12d 00:00"},
	}
	for _, tc := range testCases {
		if got := Format(tc.seconds); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormat_NegativeClampsToZero(t *testing.T) {
	if got := Format(-5); got != "00:00" {
		t.Errorf("Format(-5) = %q, want %q", got, "00:00")
	}
}
