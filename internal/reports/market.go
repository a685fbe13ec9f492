package reports

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"reportbot/internal/content"
	"reportbot/pkg/logx"
)

// Market serves price/volume snapshots from the charting API.
// Implements content.Handler, content.HistoryProvider and
// content.ExploreProvider.
type Market struct {
	hc        *http.Client
	baseURL   string
	chartsDir string
	log       logx.Logger
}

func NewMarket(hc *http.Client, baseURL, chartsDir string, log logx.Logger) *Market {
	return &Market{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), chartsDir: chartsDir, log: log}
}

type marketSummary struct {
	PriceUSD     float64 `json:"price_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
}

func (m *Market) Snapshot(ctx context.Context, chatID int64) (content.Reference, error) {
	var sum marketSummary
	if err := fetchJSON(ctx, m.hc, m.baseURL+"/v1/market/summary", &sum); err != nil {
		return content.Reference{}, fmt.Errorf("market summary: %w", err)
	}

	caption := fmt.Sprintf(
		"📈 Market snapshot\nPrice: $%s (%+.2f%% 24h)\nVolume 24h: $%s\nMarket cap: $%s",
		formatAmount(sum.PriceUSD), sum.Change24hPct,
		formatAmount(sum.Volume24hUSD), formatAmount(sum.MarketCapUSD))

	img := fetchChart(ctx, m.hc, m.baseURL+"/v1/market/chart.png?days=1", m.chartsDir, "market.png")
	return content.Reference{ImagePath: img, Caption: caption}, nil
}

func (m *Market) History(ctx context.Context, chatID int64, days int) (content.Reference, error) {
	span := "max"
	label := "all-time"
	if days > 0 {
		span = fmt.Sprintf("%d", days)
		label = fmt.Sprintf("last %d days", days)
	}

	img := fetchChart(ctx, m.hc, m.baseURL+"/v1/market/chart.png?days="+span, m.chartsDir, "market_history.png")
	if img == "" {
		return content.Reference{}, fmt.Errorf("market history chart unavailable")
	}
	return content.Reference{ImagePath: img, Caption: "📈 Market price, " + label}, nil
}

func (m *Market) Targets() []string { return []string{"price", "volume", "cap"} }

func (m *Market) Explore(ctx context.Context, chatID int64, target string) (content.Reference, error) {
	img := fetchChart(ctx, m.hc, m.baseURL+"/v1/market/chart.png?metric="+target, m.chartsDir, "market_"+target+".png")
	if img == "" {
		return content.Reference{}, fmt.Errorf("market %s chart unavailable", target)
	}
	return content.Reference{ImagePath: img, Caption: "📈 Market " + target}, nil
}
