package services

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
)

const (
	reportListLimit = 5
	renderTimeout   = 60 * time.Second
)

//go:embed templates/report.html
var reportTemplateHTML string

var reportTemplate = template.Must(template.New("report").Parse(reportTemplateHTML))

type ReportData struct {
	GeneratedAt   time.Time
	CandidateName string
	TargetRole    string
	FinalScore    float64
	KeywordMatch  float64
	AIScore       float64
	Strengths     []string
	Improvements  []string
}

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

type ReportService interface {
	Generate(ctx context.Context, data ReportData) (string, error)
}

type reportService struct {
	renderer PDFRenderer
	storage  StorageService
	logger   *zap.Logger
}

func NewReportService(renderer PDFRenderer, storage StorageService, log *zap.Logger) ReportService {
	return &reportService{
		renderer: renderer,
		storage:  storage,
		logger:   logger.WithFields(log, zap.String("component", "report")),
	}
}

// Generate renders the report and returns the stored file name.
func (r *reportService) Generate(ctx context.Context, data ReportData) (string, error) {
	html, err := RenderReportHTML(data)
	if err != nil {
		return "", err
	}

	pdf, err := r.renderer.RenderHTMLToPDF(ctx, html)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	filename, err := r.storage.SaveFile("report", ".pdf", pdf)
	if err != nil {
		return "", err
	}

	r.logger.Info("report generated", zap.String("file", filename), zap.Int("bytes", len(pdf)))
	return filename, nil
}

// RenderReportHTML fills the report template, keeping the first five
// strengths and improvements.
func RenderReportHTML(data ReportData) (string, error) {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	data.Strengths = firstN(data.Strengths, reportListLimit)
	data.Improvements = firstN(data.Improvements, reportListLimit)

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute report template: %w", err)
	}
	return buf.String(), nil
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

type chromedpRenderer struct {
	chromePath string
}

// NewChromedpRenderer prints HTML with headless Chrome. An empty chromePath
// lets chromedp locate the browser.
func NewChromedpRenderer(chromePath string) PDFRenderer {
	return &chromedpRenderer{chromePath: chromePath}
}

func (r *chromedpRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	runCtx, cancelRun := context.WithTimeout(cctx, renderTimeout)
	defer cancelRun()

	var pdfBuf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 in inches
			pdfBuf, _, err = page.PrintToPDF().WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
