package services

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"
)

type fakeRenderer struct {
	pdf  []byte
	err  error
	html string
}

func (f *fakeRenderer) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return f.pdf, f.err
}

func TestRenderReportHTML(t *testing.T) {
	html, err := RenderReportHTML(ReportData{
		GeneratedAt:   time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
		CandidateName: "Ada <Lovelace>",
		TargetRole:    "Data Scientist",
		FinalScore:    78.5,
		KeywordMatch:  60,
		AIScore:       81,
		Strengths:     []string{"s1", "s2", "s3", "s4", "s5", "s6"},
	})
	if err != nil {
		t.Fatalf("RenderReportHTML() error = %v", err)
	}

	for _, want := range []string{
		"2026-03-04 10:30 UTC",
		"Ada &lt;Lovelace&gt;",
		"Data Scientist",
		"78.50/100",
		"60.00%",
		"81/100",
		"<li>s5</li>",
		"None reported",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("report html missing %q", want)
		}
	}
	if strings.Contains(html, "<li>s6</li>") {
		t.Fatal("report html kept more than five strengths")
	}
}

func TestStorageServiceSaveAndDelete(t *testing.T) {
	storage := NewStorageService(t.TempDir() + "/nested")

	name, err := storage.SaveFile("report", "PDF", []byte("%PDF"))
	if err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	if !regexp.MustCompile(`^report_[0-9a-f]{8}\.pdf$`).MatchString(name) {
		t.Fatalf("SaveFile() name = %q", name)
	}

	data, err := os.ReadFile(storage.GetFilePath(name))
	if err != nil || string(data) != "%PDF" {
		t.Fatalf("stored file = (%q, %v)", data, err)
	}

	if got := storage.GetFilePath("../../etc/passwd"); !strings.HasPrefix(got, storage.Dir()) {
		t.Fatalf("GetFilePath escaped the directory: %q", got)
	}

	if err := storage.DeleteFile(name); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if err := storage.DeleteFile(name); err == nil {
		t.Fatal("second DeleteFile() returned nil error")
	}
}

func TestReportServiceGenerate(t *testing.T) {
	storage := NewStorageService(t.TempDir())
	renderer := &fakeRenderer{pdf: []byte("%PDF-report")}
	reports := NewReportService(renderer, storage, nil)

	name, err := reports.Generate(context.Background(), ReportData{CandidateName: "Grace"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(renderer.html, "Grace") {
		t.Fatal("renderer did not receive the report html")
	}
	data, err := os.ReadFile(storage.GetFilePath(name))
	if err != nil || string(data) != "%PDF-report" {
		t.Fatalf("stored report = (%q, %v)", data, err)
	}

	failing := NewReportService(&fakeRenderer{err: errors.New("no chrome")}, storage, nil)
	if _, err := failing.Generate(context.Background(), ReportData{}); err == nil {
		t.Fatal("Generate() with failing renderer returned nil error")
	}
}
