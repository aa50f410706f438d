package actions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

const maxBrowserContent = 50000

// BrowserAction drives a Chrome instance. The browser stays open between
// steps until the model asks to close it.
type BrowserAction struct {
	Headless bool

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewBrowserAction(headless bool) *BrowserAction {
	return &BrowserAction{Headless: headless}
}

func (b *BrowserAction) Name() string {
	return "browser"
}

func (b *BrowserAction) Description() string {
	return "Control a browser to interact with websites. The browser window remains open until you call 'close'. Actions: 'navigate', 'click', 'content', 'type', 'press', 'scroll', 'wait', 'back', 'forward', 'reload', 'screenshot', 'close'. Screenshots are saved to the task workspace."
}

func (b *BrowserAction) Category() string { return "web" }

func (b *BrowserAction) Schema() Schema {
	return JSONSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type": "string",
				"enum": []string{
					"navigate", "click", "content", "type", "press",
					"scroll", "wait", "back", "forward", "reload",
					"screenshot", "close",
				},
				"description": "The action to perform.",
			},
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to navigate to (required for 'navigate')",
			},
			"selector": map[string]any{
				"type":        "string",
				"description": "CSS selector for the target element (required for 'click', 'type', 'scroll', 'wait')",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "The text to type or key to press (required for 'type', 'press')",
			},
			"wait_seconds": map[string]any{
				"type":        "integer",
				"description": "Time to wait in seconds (used with 'wait')",
			},
		},
		"required": []string{"action"},
	})
}

func (b *BrowserAction) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", b.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *BrowserAction) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// Close shuts the browser down.
func (b *BrowserAction) Close() {
	b.mu.Lock()
	b.cleanup()
	b.mu.Unlock()
}

func (b *BrowserAction) Invoke(ctx context.Context, task Task, args map[string]any, vars map[string]string) Outcome {
	var in struct {
		Action      string `json:"action"`
		URL         string `json:"url"`
		Selector    string `json:"selector"`
		Text        string `json:"text"`
		WaitSeconds int    `json:"wait_seconds"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return Failure(err, "Could not read browser arguments")
	}

	if in.Action == "close" {
		b.Close()
		return Success(nil, "Closed the browser")
	}

	if err := validateBrowserArgs(in.Action, in.URL, in.Selector, in.Text); err != nil {
		return Failure(err, fmt.Sprintf("Invalid browser %s", in.Action))
	}

	if err := b.initBrowser(); err != nil {
		return Failure(fmt.Errorf("failed to initialize browser: %v", err), "Could not start the browser")
	}

	b.mu.Lock()
	browserCtx := b.browserCtx
	b.mu.Unlock()

	actionCtx, cancel := context.WithTimeout(browserCtx, 60*time.Second)
	defer cancel()

	var (
		result  any
		summary string
		err     error
	)

	switch in.Action {
	case "navigate":
		err = chromedp.Run(actionCtx, chromedp.Navigate(in.URL))
		summary = fmt.Sprintf("Navigated to %s", in.URL)

	case "content":
		var html string
		err = chromedp.Run(actionCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				node, err := dom.GetDocument().Do(ctx)
				if err != nil {
					return err
				}
				html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
				return err
			}),
		)
		if len(html) > maxBrowserContent {
			html = html[:maxBrowserContent] + "\n... (truncated)"
		}
		result = html
		summary = "Read the page content"

	case "click":
		err = chromedp.Run(actionCtx, chromedp.Click(in.Selector, chromedp.ByQuery))
		summary = fmt.Sprintf("Clicked %s", in.Selector)

	case "type":
		err = chromedp.Run(actionCtx, chromedp.SendKeys(in.Selector, in.Text, chromedp.ByQuery))
		summary = fmt.Sprintf("Typed text in %s", in.Selector)

	case "press":
		err = chromedp.Run(actionCtx, chromedp.KeyEvent(in.Text))
		summary = fmt.Sprintf("Pressed key: %s", in.Text)

	case "scroll":
		if in.Selector != "" {
			err = chromedp.Run(actionCtx, chromedp.ScrollIntoView(in.Selector, chromedp.ByQuery))
			summary = fmt.Sprintf("Scrolled to %s", in.Selector)
		} else {
			err = chromedp.Run(actionCtx, chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil))
			summary = "Scrolled to bottom"
		}

	case "wait":
		if in.Selector != "" {
			err = chromedp.Run(actionCtx, chromedp.WaitVisible(in.Selector, chromedp.ByQuery))
			summary = fmt.Sprintf("Finished waiting for %s", in.Selector)
		} else if in.WaitSeconds > 0 {
			err = chromedp.Run(actionCtx, chromedp.Sleep(time.Duration(in.WaitSeconds)*time.Second))
			summary = fmt.Sprintf("Waited for %d seconds", in.WaitSeconds)
		} else {
			summary = "Nothing to wait for"
		}

	case "back":
		err = chromedp.Run(actionCtx, chromedp.NavigateBack())
		summary = "Navigated back"

	case "forward":
		err = chromedp.Run(actionCtx, chromedp.NavigateForward())
		summary = "Navigated forward"

	case "reload":
		err = chromedp.Run(actionCtx, chromedp.Reload())
		summary = "Page reloaded"

	case "screenshot":
		return b.screenshot(ctx, actionCtx, task)
	}

	if err != nil {
		return Failure(fmt.Errorf("browser action failed: %v", err), fmt.Sprintf("Browser %s failed", in.Action))
	}
	return Success(result, summary)
}

func (b *BrowserAction) screenshot(ctx, actionCtx context.Context, task Task) Outcome {
	var buf []byte
	if err := chromedp.Run(actionCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return Failure(fmt.Errorf("browser action failed: %v", err), "Browser screenshot failed")
	}

	ws := task.Workspace()
	if ws == nil {
		return Failure(fmt.Errorf("no workspace configured"), "Could not store the screenshot")
	}

	name := fmt.Sprintf("screenshot_%d.png", time.Now().UnixNano())
	doc, err := ws.AddDocument(ctx, task.ID(), name, buf, map[string]string{
		"content_type": "image/png",
		"source":       "browser",
	})
	if err != nil {
		return Failure(fmt.Errorf("failed to store screenshot: %w", err), "Could not store the screenshot")
	}
	return Success(name, fmt.Sprintf("Saved screenshot %s", name)).WithDocuments(doc)
}

func validateBrowserArgs(action, url, selector, text string) error {
	switch action {
	case "navigate":
		if url == "" {
			return fmt.Errorf("url is required for 'navigate'")
		}
	case "click":
		if selector == "" {
			return fmt.Errorf("selector is required for 'click'")
		}
	case "type":
		if selector == "" || text == "" {
			return fmt.Errorf("selector and text are required for 'type'")
		}
	case "press":
		if text == "" {
			return fmt.Errorf("text (key) is required for 'press'")
		}
	case "content", "scroll", "wait", "back", "forward", "reload", "screenshot":
	default:
		return fmt.Errorf("invalid browser action %q", action)
	}
	return nil
}
