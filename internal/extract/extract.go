package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType is returned before any processing for media types
	// outside the allowed set.
	ErrUnsupportedType = errors.New("unsupported media type")
	// ErrNoText means the file parsed fine but yielded no usable text. It is
	// distinct from a parse failure so callers can report it as empty
	// content rather than a corrupt file.
	ErrNoText = errors.New("no extractable text")
)

const (
	TypePlainText = "text/plain"
	TypePDF       = "application/pdf"
	TypeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeDoc       = "application/msword"
)

// Supported reports whether the declared media type is in the allowed set.
func Supported(contentType string) bool {
	switch normalize(contentType) {
	case TypePDF, TypeDocx, TypeDoc:
		return true
	}
	return strings.HasPrefix(normalize(contentType), "text/")
}

// Extract converts an uploaded blob into plain text, dispatching on the
// declared media type. It never reaches the network and retains nothing
// across calls.
func Extract(data []byte, contentType string) (string, error) {
	ct := normalize(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"):
		return string(data), nil
	case ct == TypePDF:
		return extractPDF(data)
	case ct == TypeDocx:
		return extractDocx(data)
	case ct == TypeDoc:
		return extractDoc(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
}

func normalize(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoText
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return "", ErrNoText
	}
	return string(out), nil
}

// extractDocx unzips the OOXML package and walks word/document.xml,
// collecting <w:t> runs and inserting newlines at paragraph ends.
func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx package failed: %w", err)
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open docx document part failed: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("docx package has no word/document.xml")
	}
	defer docXML.Close()

	var b strings.Builder
	decoder := xml.NewDecoder(docXML)
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml failed: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// minDocYield is the smallest recovered-rune count accepted from a legacy
// .doc file; below it the scavenge is considered a failed extraction.
const minDocYield = 32

// extractDoc recovers text from the legacy binary Word format. There is no
// Word97 parser in the Go ecosystem worth depending on, so this scavenges
// printable runs from the file's UTF-16LE and single-byte regions.
func extractDoc(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNoText
	}

	var b strings.Builder

	flush := func(run []rune) {
		if len(run) >= 4 {
			b.WriteString(string(run))
			b.WriteByte(' ')
		}
	}

	// UTF-16LE runs: pairs of (printable, 0x00).
	var run []rune
	for i := 0; i+1 < len(data); i += 2 {
		r := rune(uint16(data[i]) | uint16(data[i+1])<<8)
		if printable(r) {
			run = append(run, r)
			continue
		}
		flush(run)
		run = run[:0]
	}
	flush(run)

	// Single-byte runs for docs stored in 8-bit code pages.
	run = run[:0]
	for _, c := range data {
		r := rune(c)
		if r < utf8.RuneSelf && printable(r) {
			run = append(run, r)
			continue
		}
		flush(run)
		run = run[:0]
	}
	flush(run)

	text := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(text) < minDocYield {
		return "", fmt.Errorf("recover text from doc failed: %w", ErrNoText)
	}
	return text, nil
}

func printable(r rune) bool {
	if r == '\n' || r == '\t' || r == ' ' {
		return true
	}
	return r > 0x20 && r != 0x7f && utf8.ValidRune(r)
}
