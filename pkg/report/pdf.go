package report

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	Landscape           bool
	PrintBackground     bool
	PreferCSSPageSize   bool
	PaperWidth          float64
	PaperHeight         float64
	MarginTop           float64
	MarginBottom        float64
	MarginLeft          float64
	MarginRight         float64
	HeaderTemplate      string
	FooterTemplate      string
	DisplayHeaderFooter bool
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Landscape:           true,
		PrintBackground:     true,
		PreferCSSPageSize:   false,
		PaperWidth:          8.27, // A4
		PaperHeight:         11.69,
		MarginTop:           0.4,
		MarginBottom:        0.4,
		MarginLeft:          0.4,
		MarginRight:         0.4,
		DisplayHeaderFooter: false,
	}
}

// GeneratePDF renders a snapshot report to outputPath through a headless
// Chrome. Chrome must be installed.
func (g *Generator) GeneratePDF(ctx context.Context, snapshotID int64, outputPath string, options *PDFOptions) error {
	html, err := g.GenerateHTML(snapshotID)
	if err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}
	return htmlToPDF(ctx, html, outputPath, options)
}

func htmlToPDF(parent context.Context, html, pdfPath string, options *PDFOptions) error {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + url.PathEscape(html)

	// Generate PDF
	var pdfData []byte
	if err := chromedp.Run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.PrintToPDF()
			params = params.
				WithLandscape(options.Landscape).
				WithPrintBackground(options.PrintBackground).
				WithPreferCSSPageSize(options.PreferCSSPageSize).
				WithPaperWidth(options.PaperWidth).
				WithPaperHeight(options.PaperHeight).
				WithMarginTop(options.MarginTop).
				WithMarginBottom(options.MarginBottom).
				WithMarginLeft(options.MarginLeft).
				WithMarginRight(options.MarginRight).
				WithDisplayHeaderFooter(options.DisplayHeaderFooter)

			if options.HeaderTemplate != "" {
				params = params.WithHeaderTemplate(options.HeaderTemplate)
			}
			if options.FooterTemplate != "" {
				params = params.WithFooterTemplate(options.FooterTemplate)
			}

			var err error
			pdfData, _, err = params.Do(ctx)
			return err
		}),
	); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}

	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	return nil
}

// QuickPDF generates a PDF with default options
func (g *Generator) QuickPDF(ctx context.Context, snapshotID int64, outputPath string) error {
	options := DefaultPDFOptions()
	return g.GeneratePDF(ctx, snapshotID, outputPath, &options)
}
