package textfmt

import "testing"

func TestFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want string
	}{
		"capitalizes and punctuates": {in: "hello world", want: "Hello world."},
		"multiple sentences":         {in: "this is a test. another one", want: "This is a test. Another one."},
		"keeps existing punctuation": {in: "Wait! really?", want: "Wait! Really?"},
		"collapses blank input":      {in: "   ", want: ""},
		"empty":                      {in: "", want: ""},
		"already formatted":          {in: "This is fine.", want: "This is fine."},
		"abbreviation-free split":    {in: "one. two. three", want: "One. Two. Three."},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Format(tc.in); got != tc.want {
				t.Fatalf("Format(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDurationLabel(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		0:    "00:00",
		5:    "00:05",
		65:   "01:05",
		3600: "60:00",
		-3:   "00:00",
	}
	for seconds, want := range cases {
		if got := DurationLabel(seconds); got != want {
			t.Fatalf("DurationLabel(%d) = %q, want %q", seconds, got, want)
		}
	}
}

func TestTitleFromContent(t *testing.T) {
	t.Parallel()

	if got := TitleFromContent("", 6); got != "Untitled note" {
		t.Fatalf("unexpected empty title: %q", got)
	}
	if got := TitleFromContent("Short note", 6); got != "Short note" {
		t.Fatalf("unexpected short title: %q", got)
	}
	if got := TitleFromContent("one two three four five six seven", 3); got != "one two three..." {
		t.Fatalf("unexpected truncated title: %q", got)
	}
}
