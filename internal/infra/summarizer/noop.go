package summarizer

import (
	"context"

	"veritas-scraper/internal/domain/entity"
)

// Noop is a Summarizer that fabricates deterministic output without calling
// any API. It backs tests and deployments with objectification disabled.
type Noop struct{}

// NewNoop creates a Noop summarizer.
func NewNoop() *Noop {
	return &Noop{}
}

// Summarize returns a fixed summary derived from the input length.
func (n *Noop) Summarize(_ context.Context, combined string) (*ClusterSummary, error) {
	title := "Özet Haber"
	if combined == "" {
		title = "Boş Küme"
	}
	return &ClusterSummary{
		Title:         title,
		Summary:       "Otomatik özet devre dışı.",
		LongerSummary: "Otomatik özetleme bu kurulumda devre dışı bırakıldı.",
		Category:      entity.CategoryFallback,
	}, nil
}
