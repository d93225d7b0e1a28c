package engine

import "testing"

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<b>bold</b> text", "bold text"},
		{"plain text", "plain text"},
		{`<a href="url">link</a>`, "link"},
		{"<ul><li>Go</li><li>SQL</li></ul>", "Go SQL"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<p>Phát triển</p><p>ứng dụng</p>", "Phát triển ứng dụng"},
		{"  spaced \n  out ", "spaced out"},
		{"", ""},
	}

	for _, tt := range tests {
		got := CleanHTML(tt.input)
		if got != tt.want {
			t.Errorf("CleanHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestJoinNonEmpty(t *testing.T) {
	got := JoinNonEmpty(". ", "Frontend Developer", "  ", "", "Build UIs ")
	if got != "Frontend Developer. Build UIs" {
		t.Errorf("JoinNonEmpty = %q", got)
	}
	if JoinNonEmpty(", ") != "" {
		t.Error("JoinNonEmpty with no parts should be empty")
	}
}
