package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// DocumentExtractionService turns uploaded document bytes into plain text.
// It is pure and stateless: bytes plus a declared format in, text out.
type DocumentExtractionService struct{}

func NewDocumentExtractionService() *DocumentExtractionService {
	return &DocumentExtractionService{}
}

func (s *DocumentExtractionService) Extract(data []byte, format DocumentFormat) (string, error) {
	switch format {
	case FormatPDF:
		return s.extractTextFromPDF(data)
	case FormatDocx:
		return s.extractTextFromWordDocument(data)
	case FormatPptx:
		return s.extractTextFromSlides(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (s *DocumentExtractionService) extractTextFromPDF(data []byte) (string, error) {
	if err := pdfapi.Validate(bytes.NewReader(data), nil); err != nil {
		return "", fmt.Errorf("invalid PDF: %v", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %v", err)
	}

	var content strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		content.WriteString(text)
		content.WriteString("\n\n") // Add separation between pages
	}

	if content.Len() == 0 {
		return "", fmt.Errorf("no text content extracted from PDF")
	}

	return content.String(), nil
}

// extractTextFromWordDocument reads the word/document.xml part of a docx
// container and collects its paragraph text.
func (s *DocumentExtractionService) extractTextFromWordDocument(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx container: %v", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read document part: %v", err)
		}
		text, err := collectXMLText(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("no text content extracted from document")
		}
		return text, nil
	}

	return "", fmt.Errorf("not a Word document: missing word/document.xml")
}

// extractTextFromSlides reads every ppt/slides/slideN.xml part of a pptx
// container in slide order and collects the shape text.
func (s *DocumentExtractionService) extractTextFromSlides(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pptx container: %v", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("not a slide deck: no slides found")
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideIndex(slides[i].Name) < slideIndex(slides[j].Name)
	})

	var content strings.Builder
	for _, f := range slides {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read slide %s: %v", f.Name, err)
		}
		text, err := collectXMLText(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		content.WriteString(text)
	}

	if strings.TrimSpace(content.String()) == "" {
		return "", fmt.Errorf("no text content extracted from slides")
	}

	return content.String(), nil
}

func slideIndex(name string) int {
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// collectXMLText walks an OOXML part and gathers the character data inside
// <t> runs, emitting a newline at each </p> paragraph boundary. Both
// wordprocessingml and drawingml use these local names.
func collectXMLText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var content strings.Builder
	inTextRun := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document XML: %v", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inTextRun = false
			}
			if t.Name.Local == "p" {
				content.WriteString("\n")
			}
		case xml.CharData:
			if inTextRun {
				content.Write(t)
			}
		}
	}

	return content.String(), nil
}
