// Package ingest turns uploaded resume documents into plain text suitable
// for profile embedding. PDF and HTML payloads are converted; anything
// else is treated as plain text.
package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// MaxResumeBytes bounds a single uploaded document.
const MaxResumeBytes = 10 << 20 // 10 MiB

// ExtractText converts an uploaded document to plain text. The format is
// sniffed from the payload itself so callers need not trust the declared
// content type.
func ExtractText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty document")
	}
	if len(data) > MaxResumeBytes {
		return "", fmt.Errorf("document exceeds %d bytes", MaxResumeBytes)
	}

	switch sniff(data) {
	case "pdf":
		return extractPDF(data)
	case "html":
		return extractHTML(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("document is neither PDF, HTML nor valid UTF-8 text")
		}
		return collapse(string(data)), nil
	}
}

func sniff(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return "pdf"
	}
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body")) {
		return "html"
	}
	return "text"
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	text := collapse(buf.String())
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return text, nil
}

// extractHTML walks the token stream keeping text nodes, skipping the
// contents of script and style elements.
func extractHTML(data []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	var parts []string
	skipDepth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// Tokenizer signals EOF as an error token.
			text := collapse(strings.Join(parts, " "))
			if text == "" {
				return "", fmt.Errorf("html contains no text")
			}
			return text, nil
		case html.StartTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				parts = append(parts, t)
			}
		}
	}
}

// collapse normalizes whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
