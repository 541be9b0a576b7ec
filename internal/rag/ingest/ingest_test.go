package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/akolanti/DocAssist/internal/domain/commonModels"
	"github.com/xuri/excelize/v2"
)

func buildPptx(t *testing.T, slides map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range slides {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const slideXML = `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody>
<a:p><a:r><a:t>%s</a:t></a:r><a:r><a:t> continued</a:t></a:r></a:p>
<a:p><a:r><a:t>Second line</a:t></a:r></a:p>
</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

func TestExtractText_Text(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractText(context.Background(), []byte("Heading\n\nBody paragraph here."), commonModels.TEXT)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "Heading\n\nBody paragraph here." {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_Slides(t *testing.T) {
	content := buildPptx(t, map[string]string{
		"ppt/slides/slide2.xml":            strings.Replace(slideXML, "%s", "Roadmap", 1),
		"ppt/slides/slide10.xml":           strings.Replace(slideXML, "%s", "Appendix", 1),
		"ppt/slides/slide1.xml":            strings.Replace(slideXML, "%s", "Welcome", 1),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})

	got, err := NewExtractor().ExtractText(context.Background(), content, commonModels.POWERPOINT)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	parts := strings.Split(got, "\n\n")
	if len(parts) != 3 {
		t.Fatalf("expected 3 slides, got %d: %q", len(parts), got)
	}
	if !strings.HasPrefix(parts[0], "Welcome continued") || !strings.HasPrefix(parts[1], "Roadmap") || !strings.HasPrefix(parts[2], "Appendix") {
		t.Errorf("slides out of order: %q", parts)
	}
	if !strings.Contains(parts[0], "\nSecond line") {
		t.Errorf("paragraph break lost: %q", parts[0])
	}
}

func TestExtractText_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Item")
	_ = f.SetCellValue("Sheet1", "B1", "Price")
	_ = f.SetCellValue("Sheet1", "A2", "Widget")
	_ = f.SetCellValue("Sheet1", "B2", 42)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	got, err := NewExtractor().ExtractText(context.Background(), buf.Bytes(), commonModels.EXCEL)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(got, "Item\tPrice") || !strings.Contains(got, "Widget\t42") {
		t.Errorf("unexpected spreadsheet text %q", got)
	}
}

func TestExtractText_Errors(t *testing.T) {
	e := NewExtractor()
	ctx := context.Background()

	if got, err := e.ExtractText(ctx, nil, commonModels.PDF); err != nil || got != "" {
		t.Errorf("empty content: got %q, %v", got, err)
	}
	if _, err := e.ExtractText(ctx, []byte("x"), commonModels.ERR); err == nil {
		t.Error("expected error for unsupported type")
	}
	if _, err := e.ExtractText(ctx, []byte("not a pdf at all"), commonModels.PDF); err == nil {
		t.Error("expected error for a broken pdf")
	}
	if _, err := e.ExtractText(ctx, []byte("not a zip"), commonModels.POWERPOINT); err == nil {
		t.Error("expected error for a broken pptx")
	}
}

func TestSniffWordExtension(t *testing.T) {
	tests := []struct {
		content  string
		expected string
	}{
		{"{\\rtf1\\ansi hello}", ".rtf"},
		{"PK\x03\x04 word/document.xml", ".docx"},
		{"PK\x03\x04 mimetypeapplication/vnd.oasis.opendocument.text", ".odt"},
		{"plain words", ".txt"},
	}
	for _, tt := range tests {
		if got := sniffWordExtension([]byte(tt.content)); got != tt.expected {
			t.Errorf("sniffWordExtension(%q) = %s; want %s", tt.content, got, tt.expected)
		}
	}
}
