// Package report renders stored searches as printable HTML and PDF.
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/prompt"
)

//go:embed templates/report.html
var templates embed.FS

// DefaultTimeout for PDF rendering.
const DefaultTimeout = 30 * time.Second

// Renderer turns a result into a PDF document.
type Renderer interface {
	RenderPDF(ctx context.Context, res *models.Result) ([]byte, error)
}

// PDFRenderer prints HTML to PDF with headless Chrome.
type PDFRenderer struct {
	tmpl     *template.Template
	cacheDir string
	timeout  time.Duration
}

// NewPDFRenderer creates a renderer. PDFs are cached under cacheDir/reports
// when cacheDir is not empty.
func NewPDFRenderer(cacheDir string) (*PDFRenderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &PDFRenderer{tmpl: tmpl, cacheDir: cacheDir, timeout: DefaultTimeout}, nil
}

type reportData struct {
	Title   string
	Result  *models.Result
	Filters []string
}

// RenderHTML renders the report page.
func (p *PDFRenderer) RenderHTML(res *models.Result) (string, error) {
	data := reportData{Result: res}
	if res.Query.Kind == models.KindPolicy {
		data.Title = "Policy research: " + res.Query.Text
		data.Filters = prompt.PolicyRules(res.Query.PolicyFilters)
	} else {
		data.Title = "Regulation research: " + res.Query.Text
		data.Filters = prompt.RegulationRules(res.Query.RegulationFilters)
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF returns the PDF for res, from cache when available.
func (p *PDFRenderer) RenderPDF(ctx context.Context, res *models.Result) ([]byte, error) {
	cachePath := ""
	if p.cacheDir != "" {
		cachePath = filepath.Join(p.cacheDir, "reports", res.ID.String()+".pdf")
		if b, err := os.ReadFile(cachePath); err == nil {
			return b, nil
		}
	}

	html, err := p.RenderHTML(res)
	if err != nil {
		return nil, err
	}

	pdf, err := p.htmlToPDF(ctx, html)
	if err != nil {
		logger.Error("failed to convert report to PDF", err)
		return nil, fmt.Errorf("HTML to PDF: %w", err)
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err == nil {
			if err := os.WriteFile(cachePath, pdf, 0644); err != nil {
				logger.Warn("failed to cache report PDF", err)
			}
		}
	}
	return pdf, nil
}

// htmlToPDF prints html with a fresh headless browser.
func (p *PDFRenderer) htmlToPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	actx, cancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	defer cancel()

	cctx, cancel := chromedp.NewContext(actx)
	defer cancel()

	var pdfBuf []byte
	if err := chromedp.Run(cctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	return pdfBuf, nil
}
