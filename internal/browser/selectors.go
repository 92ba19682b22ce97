package browser

import (
	"context"
	"fmt"
	"time"
)

// SelectorKind distinguishes how a selector expression is interpreted.
type SelectorKind int

const (
	// ByCSS matches elements with a CSS selector.
	ByCSS SelectorKind = iota
	// ByXPath matches elements with an XPath expression.
	ByXPath
)

// Selector is one element-locating strategy.
type Selector struct {
	Kind SelectorKind
	Expr string
}

// Chain is an ordered list of independent element-locating strategies, most
// specific first. The first strategy that resolves within its bounded wait
// wins; exhausting the chain is a terminal failure for the calling step.
type Chain []Selector

// ProbeFunc attempts to resolve a single selector. It must honor ctx
// cancellation and return nil once the element is present and interactable.
type ProbeFunc func(ctx context.Context, sel Selector) error

// Resolve tries each strategy in order, giving each at most perAttempt. It
// returns the winning selector and its index without probing any strategy
// beyond the first success.
func (c Chain) Resolve(ctx context.Context, perAttempt time.Duration, probe ProbeFunc) (Selector, int, error) {
	if len(c) == 0 {
		return Selector{}, -1, fmt.Errorf("empty selector chain")
	}

	var lastErr error
	for i, sel := range c {
		if err := ctx.Err(); err != nil {
			return Selector{}, -1, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		err := probe(attemptCtx, sel)
		cancel()
		if err == nil {
			return sel, i, nil
		}
		lastErr = err
	}

	return Selector{}, -1, fmt.Errorf(
		"all %d selector strategies exhausted (session may be expired or the page layout changed): %w",
		len(c), lastErr)
}

// Selector chains for the publish surface. Expressions come from the target
// UI's current markup; progressively looser fallbacks cover class churn.
var (
	// publishTriggerChain locates the button that opens the upload modal.
	publishTriggerChain = Chain{
		{ByXPath, `//button[contains(@class, 'ant-btn-primary')]//span[text()='Đăng video']/parent::button`},
		{ByXPath, `//button[.//span[text()='Đăng video']]`},
		{ByCSS, `button.ant-btn-primary`},
	}

	// submitPublishChain locates the final publish button inside the modal,
	// independent from the trigger chain.
	submitPublishChain = Chain{
		{ByXPath, `//button[contains(@class, 'bg-color-5') and contains(@class, 'mt-6')]//span[text()='Đăng video']/parent::button`},
		{ByXPath, `//button[contains(@class, 'ant-btn-primary')]//span[text()='Đăng video']/parent::button`},
		{ByCSS, `button.ant-btn-primary.bg-color-5`},
	}
)

const (
	fileInputSelector     = `input[type='file'][accept*='video']`
	captionInputSelector  = `div.input-conteneditable[contenteditable='true']`
	scheduleInputSelector = `input[placeholder='Chọn thời điểm']`
	scheduleOKXPath       = `//button[contains(@class, 'ant-btn-primary') and contains(@class, 'ant-btn-sm')]//span[text()='OK']/parent::button`
	loginButtonSelector   = `button[class*='login-btn']`
)
