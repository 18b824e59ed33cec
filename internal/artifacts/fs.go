package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Artifact file names inside a position directory.
const (
	PretradeFile = "01_pretrade.json"
	SummaryFile  = "02_exec_summary.md"
	PDFFile      = "03_exec_summary.pdf"
)

// FSSink writes position artifacts under <root>/positions/<yyyy>/<id>/:
// the structured pretrade record, a markdown executive summary, and a
// print-ready PDF.
type FSSink struct {
	root string
}

// NewFSSink creates a filesystem sink rooted at dataDir.
func NewFSSink(dataDir string) *FSSink {
	return &FSSink{root: dataDir}
}

// Save writes all three artifacts for an approved record and returns the
// position directory.
func (s *FSSink) Save(ctx context.Context, rec Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, "positions", strconv.Itoa(rec.CreatedAt.Year()), rec.PositionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create position dir: %w", err)
	}

	if err := s.writePretrade(dir, rec); err != nil {
		return "", err
	}
	if err := s.writeSummary(dir, rec); err != nil {
		return "", err
	}
	if err := s.writePDF(dir, rec); err != nil {
		return "", err
	}

	log.Debug().Str("position_id", rec.PositionID).Str("dir", dir).Msg("position artifacts saved")
	return dir, nil
}

func (s *FSSink) writePretrade(dir string, rec Record) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pretrade record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, PretradeFile), b, 0644); err != nil {
		return fmt.Errorf("failed to write pretrade record: %w", err)
	}
	return nil
}

func (s *FSSink) writeSummary(dir string, rec Record) error {
	lines := []string{
		fmt.Sprintf("# Executive Summary — %s", rec.Market),
		"",
		fmt.Sprintf("- Side: **%s**", rec.Side),
		fmt.Sprintf("- Signal score: **%d**", rec.SignalScore),
		fmt.Sprintf("- Estimated edge: **%s%%**", formatNum(rec.EdgePct)),
		fmt.Sprintf("- Suggested risk: **$%s (%s%%)**", formatNum(rec.Risk.RiskUsd), formatNum(rec.Risk.RiskPct)),
		fmt.Sprintf("- Thesis: %s", rec.Thesis),
		"",
		"## Evidence",
	}
	for _, e := range rec.Evidence {
		lines = append(lines, fmt.Sprintf("- %s", e))
	}
	lines = append(lines, "", "## Invalidators")
	for _, inv := range rec.Invalidators {
		lines = append(lines, fmt.Sprintf("- %s", inv))
	}

	md := strings.Join(lines, "\n")
	if err := os.WriteFile(filepath.Join(dir, SummaryFile), []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (s *FSSink) writePDF(dir string, rec Record) error {
	pdf := renderPDF(fmt.Sprintf("Executive Summary: %s", rec.Market), []string{
		fmt.Sprintf("Position ID: %s", rec.PositionID),
		fmt.Sprintf("Side: %s", rec.Side),
		fmt.Sprintf("Signal score: %d", rec.SignalScore),
		fmt.Sprintf("Edge: %s%%", formatNum(rec.EdgePct)),
		fmt.Sprintf("Risk USD: %s", formatNum(rec.Risk.RiskUsd)),
		fmt.Sprintf("Thesis: %s", rec.Thesis),
		"See markdown report for full detail.",
	})
	if err := os.WriteFile(filepath.Join(dir, PDFFile), pdf, 0644); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

// formatNum renders a float with the fewest digits that round-trip, so whole
// values print without decimals.
func formatNum(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
