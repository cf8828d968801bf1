package docgen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 in inches with 20 mm margins.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
	marginInches   = 0.79
)

// ChromeConverter prints the document's HTML rendering with headless Chrome.
// The browser is started on first use and shared by concurrent calls.
type ChromeConverter struct {
	mu      sync.Mutex
	bin     string
	timeout time.Duration
	browser *rod.Browser
}

// NewChromeConverter uses bin when set, otherwise ROD_BROWSER_BIN or a
// downloaded Chromium. A zero timeout leaves page loads unbounded unless the
// caller's context carries a deadline.
func NewChromeConverter(bin string, timeout time.Duration) *ChromeConverter {
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if timeout < 0 {
		timeout = 0
	}
	return &ChromeConverter{bin: bin, timeout: timeout}
}

// loadTimeout is the context deadline when there is one, else the configured
// timeout. Zero means no limit.
func (c *ChromeConverter) loadTimeout(ctx context.Context) (time.Duration, error) {
	if deadline, ok := ctx.Deadline(); ok {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, context.DeadlineExceeded
		}
		return d, nil
	}
	return c.timeout, nil
}

func (c *ChromeConverter) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New()
	if c.bin != "" {
		l = l.Bin(c.bin).NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %v", ErrConversion, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect browser: %v", ErrConversion, err)
	}
	c.browser = browser
	return browser, nil
}

// Close releases the browser.
func (c *ChromeConverter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}

func (c *ChromeConverter) Convert(ctx context.Context, doc *Document, _ string, pdfPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || len(doc.HTML) == 0 {
		return fmt.Errorf("%w: document has no HTML rendering", ErrConversion)
	}

	htmlPath := strings.TrimSuffix(pdfPath, ".pdf") + ".html"
	if err := os.WriteFile(htmlPath, doc.HTML, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	defer os.Remove(htmlPath)

	browser, err := c.ensureBrowser()
	if err != nil {
		return err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "file://" + htmlPath})
	if err != nil {
		return fmt.Errorf("%w: open page: %v", ErrConversion, err)
	}
	defer page.Close()

	timeout, err := c.loadTimeout(ctx)
	if err != nil {
		return err
	}
	loading := page
	if timeout > 0 {
		loading = page.Timeout(timeout)
	}
	if err := loading.WaitLoad(); err != nil {
		return fmt.Errorf("%w: load page: %v", ErrConversion, err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:        floatPtr(a4WidthInches),
		PaperHeight:       floatPtr(a4HeightInches),
		MarginTop:         floatPtr(marginInches),
		MarginBottom:      floatPtr(marginInches),
		MarginLeft:        floatPtr(marginInches),
		MarginRight:       floatPtr(marginInches),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return fmt.Errorf("%w: print: %v", ErrConversion, err)
	}

	out, err := os.Create(pdfPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if _, err := out.ReadFrom(reader); err != nil {
		out.Close()
		os.Remove(pdfPath)
		return fmt.Errorf("%w: write pdf: %v", ErrConversion, err)
	}
	return out.Close()
}

func floatPtr(v float64) *float64 {
	return &v
}
