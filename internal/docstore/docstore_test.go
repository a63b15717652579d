package docstore

import "testing"

func TestCleanSource(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"uploads/doc_abc_report.pdf", "doc_abc_report.pdf"},
		{`uploads\doc_abc_report.pdf`, "doc_abc_report.pdf"},
		{"doc_abc_report.pdf", "doc_abc_report.pdf"},
		{"nested/uploads/doc.pdf", "nested/uploads/doc.pdf"},
	}
	for _, tt := range tests {
		if got := CleanSource(tt.in); got != tt.want {
			t.Fatalf("CleanSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocumentSourceURL(t *testing.T) {
	link := Document{DocumentType: TypeLink, DocumentURL: "https://news.example.com/article"}
	if got := link.SourceURL(); got != "https://news.example.com/article" {
		t.Fatalf("link SourceURL = %q", got)
	}

	file := Document{DocumentType: TypeFile, FilePath: "uploads/doc_1_ruling.pdf"}
	if got := file.SourceURL(); got != "doc_1_ruling.pdf" {
		t.Fatalf("file SourceURL = %q", got)
	}
}
