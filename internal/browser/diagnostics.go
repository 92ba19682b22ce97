package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/hieund/repostbot/internal/logger"
)

// diagnosticsTimeout bounds evidence capture so it cannot stall teardown.
const diagnosticsTimeout = 10 * time.Second

// captureDiagnostics records failure evidence: a screenshot plus the current
// page URL and title. Strictly best-effort; a capture failure must not mask
// the original step error, so everything here only logs.
func (a *attempt) captureDiagnostics(stepName string) {
	if a.browserCtx == nil {
		// Failed before the driver launched; nothing to capture.
		return
	}
	log := a.controller.logger

	ctx, cancel := context.WithTimeout(a.browserCtx, diagnosticsTimeout)
	defer cancel()

	var pageURL, pageTitle string
	if err := chromedp.Run(ctx, chromedp.Location(&pageURL), chromedp.Title(&pageTitle)); err != nil {
		log.Warn("failed to capture page state", logger.Field{Key: "error", Value: err})
	}

	var screenshotPath string
	var shot []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&shot, 80)); err != nil {
		log.Warn("failed to capture screenshot", logger.Field{Key: "error", Value: err})
	} else if err := os.MkdirAll(a.controller.cfg.DiagnosticsDir, 0755); err != nil {
		log.Warn("failed to create diagnostics directory", logger.Field{Key: "error", Value: err})
	} else {
		name := fmt.Sprintf("fail_%s_%d_%s.png",
			stepName, time.Now().Unix(), strings.Split(uuid.NewString(), "-")[0])
		screenshotPath = filepath.Join(a.controller.cfg.DiagnosticsDir, name)
		if err := os.WriteFile(screenshotPath, shot, 0644); err != nil {
			log.Warn("failed to write screenshot", logger.Field{Key: "error", Value: err})
			screenshotPath = ""
		}
	}

	log.Error("publish attempt failed", nil,
		logger.Field{Key: "step", Value: stepName},
		logger.Field{Key: "page_url", Value: pageURL},
		logger.Field{Key: "page_title", Value: pageTitle},
		logger.Field{Key: "screenshot", Value: screenshotPath})
}
