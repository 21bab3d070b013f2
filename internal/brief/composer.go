package brief

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brandsignal/compass/internal/engine"
	"github.com/brandsignal/compass/internal/llm"
	"github.com/brandsignal/compass/internal/logging"
	"github.com/brandsignal/compass/internal/models"
)

const (
	composeTimeout = 45 * time.Second
	maxBriefTasks  = 5
	maxBriefTrends = 5
)

const composerSystemPrompt = `You are the chief marketing officer for a crypto brand.
Write a short daily brief (3-5 paragraphs) for the marketing team based on the metrics,
campaign results, and recommended tasks below. Be direct about what is working and what
is not. Reference concrete numbers from the context. Do not invent figures that are not
in the context. Respond with ONLY the brief text, nothing else.`

// Inputs is everything the composer folds into one brief. All fields come
// from a completed analysis run; the composer never fetches on its own.
type Inputs struct {
	BrandID  string
	Metrics  *models.ComputedMetrics
	Growth   engine.GrowthReport
	Tasks    []models.StrategyTask
	Trends   []models.TrendSignal
	Insights []string
}

type Composer struct {
	llm    llm.Provider
	model  string
	logger logging.Logger
}

func NewComposer(provider llm.Provider, model string, logger logging.Logger) *Composer {
	return &Composer{llm: provider, model: model, logger: logger}
}

// Compose builds the deterministic context from the inputs and asks the
// configured LLM for the prose. Without a provider it falls back to the
// context itself so the endpoint still returns a readable brief.
func (c *Composer) Compose(ctx context.Context, in Inputs) (models.BriefRecord, error) {
	briefContext := BuildContext(in)

	record := models.BriefRecord{
		BrandID: in.BrandID,
		Context: briefContext,
	}

	if c.llm == nil {
		c.logger.Debug("Brief composer: no LLM provider, returning context digest")
		record.Text = fallbackText(in)
		return record, nil
	}

	text, err := c.generate(ctx, briefContext)
	if err != nil {
		return models.BriefRecord{}, fmt.Errorf("compose brief: %w", err)
	}
	record.Text = text
	record.Model = c.model
	return record, nil
}

func (c *Composer) generate(ctx context.Context, briefContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, composeTimeout)
	defer cancel()

	stream, err := c.llm.Complete(ctx, []llm.Message{
		{Role: "system", Content: composerSystemPrompt},
		{Role: "user", Content: briefContext},
	}, nil)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var content strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		content.WriteString(chunk.Content)
	}

	return strings.TrimSpace(content.String()), nil
}

// BuildContext renders the analysis outputs into a fixed-order plain text
// block. The same inputs always produce the same context, which is stored
// next to the generated text for auditability.
func BuildContext(in Inputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Brand: %s\n\n", in.BrandID)

	if cm := in.Metrics; cm != nil {
		b.WriteString("On-chain metrics:\n")
		fmt.Fprintf(&b, "- Total volume: $%.2f\n", cm.TotalVolume)
		fmt.Fprintf(&b, "- Net new wallets: %d\n", cm.NetNewWallets)
		fmt.Fprintf(&b, "- Active wallets: %d\n", cm.ActiveWallets)
		fmt.Fprintf(&b, "- Wallet retention: %.1f%%\n", cm.RetentionRate)
		ranked := engine.RankByROI(cm.Campaigns)
		if len(ranked) > 0 {
			b.WriteString("Campaigns by ROI:\n")
			for _, perf := range ranked {
				fmt.Fprintf(&b, "- %s (%s): ROI %.2fx, CPA $%.2f, lift %.2fx, %d net new wallets\n",
					perf.CampaignName, perf.Channel, perf.ROI, perf.CPA, perf.Lift, perf.NetNewWallets)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Growth:\n")
	writeDelta(&b, "Followers", in.Growth.Followers)
	writeDelta(&b, "Impressions", in.Growth.Impressions)
	writeDelta(&b, "Engagement rate", in.Growth.Engagement)
	b.WriteString("\n")

	if len(in.Tasks) > 0 {
		b.WriteString("Top recommended tasks:\n")
		for i, task := range in.Tasks {
			if i >= maxBriefTasks {
				break
			}
			fmt.Fprintf(&b, "- [%s, impact %d/10] %s: %s\n", task.Category, task.ImpactScore, task.Title, task.Reasoning)
		}
		b.WriteString("\n")
	}

	if len(in.Trends) > 0 {
		b.WriteString("Market signals:\n")
		for i, sig := range in.Trends {
			if i >= maxBriefTrends {
				break
			}
			fmt.Fprintf(&b, "- %s (relevance %d, sentiment %+.2f)\n", sig.Title, sig.RelevanceScore, sig.Sentiment)
		}
		b.WriteString("\n")
	}

	if len(in.Insights) > 0 {
		b.WriteString("Insights:\n")
		for _, insight := range in.Insights {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
	}

	return strings.TrimSpace(b.String())
}

func writeDelta(b *strings.Builder, label string, d engine.Delta) {
	if !d.HasData {
		fmt.Fprintf(b, "- %s: no prior data\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: %s %.2f%%\n", label, d.Direction, d.Percent)
}

func fallbackText(in Inputs) string {
	var b strings.Builder
	b.WriteString("Daily digest (automated, no narrative model configured).\n")
	if len(in.Insights) > 0 {
		for _, insight := range in.Insights {
			fmt.Fprintf(&b, "%s\n", insight)
		}
	}
	if len(in.Tasks) > 0 {
		fmt.Fprintf(&b, "Top task: %s (impact %d/10).\n", in.Tasks[0].Title, in.Tasks[0].ImpactScore)
	}
	return strings.TrimSpace(b.String())
}
