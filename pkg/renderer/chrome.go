package renderer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// DefaultChromeTimeout bounds a single page layout, including browser startup.
const DefaultChromeTimeout = 60 * time.Second

// A4 paper size in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromeEngine lays out pages with a headless Chrome driven over the DevTools protocol.
type ChromeEngine struct {
	execPath string
	timeout  time.Duration
}

// NewChromeEngine creates an engine. An empty execPath lets chromedp find Chrome on the PATH.
func NewChromeEngine(execPath string, timeout time.Duration) (e *ChromeEngine) {
	if timeout <= 0 {
		timeout = DefaultChromeTimeout
	}
	e = &ChromeEngine{
		execPath: execPath,
		timeout:  timeout,
	}
	return e
}

// PrintPDF loads xhtml into a fresh browser tab and prints it to A4 PDF.
func (e *ChromeEngine) PrintPDF(ctx context.Context, xhtml string) (pdf []byte, err error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, e.timeout)
	defer cancelRun()

	// Stage the document on disk so relative resources resolve
	tmpDir, err := os.MkdirTemp("", "resume-optimizer-")
	if err != nil {
		err = errors.Wrap(err, "failed to create temp directory")
		return pdf, err
	}
	defer os.RemoveAll(tmpDir)

	docPath := filepath.Join(tmpDir, "index.xhtml")
	err = os.WriteFile(docPath, []byte(xhtml), 0600)
	if err != nil {
		err = errors.Wrap(err, "failed to stage document")
		return pdf, err
	}

	err = chromedp.Run(runCtx,
		chromedp.Navigate("file://"+docPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) (actionErr error) {
			pdf, _, actionErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return actionErr
		}),
	)
	if err != nil {
		err = errors.Wrap(err, "chrome failed to print PDF")
		return pdf, err
	}

	return pdf, err
}
