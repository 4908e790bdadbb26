package ingest

import (
	"bytes"
	"strings"
	"testing"
)

func TestExtractText_PlainText(t *testing.T) {
	got, err := ExtractText([]byte("Ten years of  Go and\n\nKubernetes experience."))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Ten years of Go and Kubernetes experience." {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_HTML(t *testing.T) {
	doc := `<!DOCTYPE html>
<html><head><title>CV</title><style>body { color: red }</style></head>
<body>
  <h1>Jane Doe</h1>
  <p>Senior <b>React</b> developer.</p>
  <script>console.log("tracking")</script>
</body></html>`
	got, err := ExtractText([]byte(doc))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	for _, want := range []string{"Jane Doe", "React", "developer."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	for _, banned := range []string{"console.log", "color: red"} {
		if strings.Contains(got, banned) {
			t.Errorf("script/style content leaked: %q", got)
		}
	}
}

func TestExtractText_HTMLWithoutText(t *testing.T) {
	if _, err := ExtractText([]byte("<html><body><script>x()</script></body></html>")); err == nil {
		t.Fatal("expected error for text-free html")
	}
}

func TestExtractText_Empty(t *testing.T) {
	if _, err := ExtractText(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestExtractText_TooLarge(t *testing.T) {
	if _, err := ExtractText(make([]byte, MaxResumeBytes+1)); err == nil {
		t.Fatal("expected error for oversized document")
	}
}

func TestExtractText_InvalidUTF8(t *testing.T) {
	if _, err := ExtractText([]byte{0xff, 0xfe, 0x00, 0x01}); err == nil {
		t.Fatal("expected error for binary garbage")
	}
}

func TestExtractText_MalformedPDF(t *testing.T) {
	// Carries the PDF magic but no valid structure.
	if _, err := ExtractText([]byte("%PDF-1.7 not actually a pdf")); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte("%PDF-1.4\n..."), "pdf"},
		{[]byte("  <!DOCTYPE HTML><html>"), "html"},
		{[]byte("<HTML><body>x</body>"), "html"},
		{[]byte("plain resume text"), "text"},
	}
	for _, tt := range tests {
		if got := sniff(tt.data); got != tt.want {
			t.Errorf("sniff(%q) = %s, want %s", bytes.TrimSpace(tt.data), got, tt.want)
		}
	}
}
