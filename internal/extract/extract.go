package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .pdf nor .docx
	ErrUnsupportedFormat = errors.New("unsupported file format, use .docx or .pdf")
	// ErrCorruptDocument is returned when the content does not match its extension or cannot be read
	ErrCorruptDocument = errors.New("document content is unreadable")
)

const (
	mimePDF  = "application/pdf"
	mimeZIP  = "application/zip"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Supported reports whether the filename has an extension the extractor understands.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx":
		return true
	}
	return false
}

// CheckExtension returns ErrUnsupportedFormat for files that cannot be extracted.
func CheckExtension(filename string) error {
	if !Supported(filename) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	return nil
}

// Text returns the plain text of a PDF or DOCX document.
func Text(filename string, data []byte) (string, error) {
	if err := CheckExtension(filename); err != nil {
		return "", err
	}
	detected := mimetype.Detect(data)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		if !detected.Is(mimePDF) {
			return "", fmt.Errorf("%w: %s is %s, not a PDF", ErrCorruptDocument, filename, detected.String())
		}
		return pdfText(data)
	default:
		if !isA(detected, mimeDOCX) && !isA(detected, mimeZIP) {
			return "", fmt.Errorf("%w: %s is %s, not a DOCX", ErrCorruptDocument, filename, detected.String())
		}
		return docxText(data)
	}
}

// isA walks the detected type and its parents
func isA(m *mimetype.MIME, want string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf: %v", ErrCorruptDocument, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrCorruptDocument, err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", ErrCorruptDocument, i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrCorruptDocument, err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%w: docx: missing word/document.xml", ErrCorruptDocument)
	}
	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrCorruptDocument, err)
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrCorruptDocument, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs collects the text of every w:p element in document order.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		// open paragraphs, innermost last; text boxes nest w:p inside w:p
		open   []*strings.Builder
		inText bool
	)
	current := func() *strings.Builder {
		if len(open) == 0 {
			return nil
		}
		return open[len(open)-1]
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = true
			case "tab":
				if b := current(); b != nil {
					b.WriteByte('\t')
				}
			case "br", "cr":
				if b := current(); b != nil {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if b := current(); b != nil {
					paragraphs = append(paragraphs, b.String())
					open = open[:len(open)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if b := current(); b != nil && inText {
				b.Write(t)
			}
		}
	}
	return paragraphs, nil
}
