package transport

import (
	"errors"
	"testing"
)

func TestCanonicalID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "-1001234567890", want: -1001234567890},
		{in: "1234567890", want: -1001234567890},
		{in: "-1234567890", want: -1001234567890},
		{in: " -1001234567890 ", want: -1001234567890},
		{in: "@channel", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tc := range cases {
		got, err := CanonicalID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("CanonicalID(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("CanonicalID(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("CanonicalID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestInternalID(t *testing.T) {
	t.Parallel()

	if got := InternalID(-1001234567890); got != 1234567890 {
		t.Fatalf("InternalID = %d, want 1234567890", got)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q", got)
	}

	plain := errors.New("boom")
	if got := KindOf(plain); got != KindOther {
		t.Fatalf("KindOf(plain) = %q, want %q", got, KindOther)
	}

	classified := NewError(KindTopicUnavailable, "thread not found", plain)
	if !IsTopicUnavailable(classified) {
		t.Fatal("IsTopicUnavailable should hold")
	}
	if !errors.Is(classified, plain) {
		t.Fatal("classified error should wrap its cause")
	}

	wrapped := NewError(KindRateLimited, "retry later", nil)
	if got := KindOf(wrapped); got != KindRateLimited {
		t.Fatalf("KindOf = %q, want %q", got, KindRateLimited)
	}
}
