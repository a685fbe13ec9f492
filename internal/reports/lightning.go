package reports

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"reportbot/internal/content"
	"reportbot/pkg/logx"
)

// Lightning serves lightning-network stats from the charting API.
type Lightning struct {
	hc        *http.Client
	baseURL   string
	chartsDir string
	log       logx.Logger
}

func NewLightning(hc *http.Client, baseURL, chartsDir string, log logx.Logger) *Lightning {
	return &Lightning{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), chartsDir: chartsDir, log: log}
}

type lightningSummary struct {
	NodeCount    int     `json:"node_count"`
	ChannelCount int     `json:"channel_count"`
	CapacityBTC  float64 `json:"capacity_btc"`
}

func (l *Lightning) Snapshot(ctx context.Context, chatID int64) (content.Reference, error) {
	var sum lightningSummary
	if err := fetchJSON(ctx, l.hc, l.baseURL+"/v1/lightning/summary", &sum); err != nil {
		return content.Reference{}, fmt.Errorf("lightning summary: %w", err)
	}

	caption := fmt.Sprintf(
		"⚡ Lightning snapshot\nNodes: %d\nChannels: %d\nCapacity: %.1f BTC",
		sum.NodeCount, sum.ChannelCount, sum.CapacityBTC)

	img := fetchChart(ctx, l.hc, l.baseURL+"/v1/lightning/chart.png?days=1", l.chartsDir, "lightning.png")
	return content.Reference{ImagePath: img, Caption: caption}, nil
}

func (l *Lightning) History(ctx context.Context, chatID int64, days int) (content.Reference, error) {
	span := "max"
	label := "all-time"
	if days > 0 {
		span = fmt.Sprintf("%d", days)
		label = fmt.Sprintf("last %d days", days)
	}

	img := fetchChart(ctx, l.hc, l.baseURL+"/v1/lightning/chart.png?days="+span, l.chartsDir, "lightning_history.png")
	if img == "" {
		return content.Reference{}, fmt.Errorf("lightning history chart unavailable")
	}
	return content.Reference{ImagePath: img, Caption: "⚡ Lightning capacity, " + label}, nil
}

func (l *Lightning) Targets() []string { return []string{"capacity", "nodes", "channels"} }

func (l *Lightning) Explore(ctx context.Context, chatID int64, target string) (content.Reference, error) {
	img := fetchChart(ctx, l.hc, l.baseURL+"/v1/lightning/chart.png?metric="+target, l.chartsDir, "lightning_"+target+".png")
	if img == "" {
		return content.Reference{}, fmt.Errorf("lightning %s chart unavailable", target)
	}
	return content.Reference{ImagePath: img, Caption: "⚡ Lightning " + target}, nil
}
