package reports

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reportbot/pkg/logx"
)

func TestMarketSnapshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/market/summary":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"price_usd": 64123.5, "change_24h_pct": -1.2, "volume_24h_usd": 21e9, "market_cap_usd": 1.26e12}`))
		case "/v1/market/chart.png":
			w.Write([]byte("png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := NewMarket(srv.Client(), srv.URL, t.TempDir(), logx.Nop())
	ref, err := m.Snapshot(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"64.1K", "-1.20%", "21.00B", "1.26T"} {
		if !strings.Contains(ref.Caption, want) {
			t.Errorf("caption missing %q: %q", want, ref.Caption)
		}
	}
	if ref.ImagePath == "" {
		t.Error("chart path empty despite chart endpoint responding")
	}
}

func TestMarketSnapshotChartFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/market/summary" {
			w.Write([]byte(`{"price_usd": 100}`))
			return
		}
		http.Error(w, "renderer down", http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewMarket(srv.Client(), srv.URL, t.TempDir(), logx.Nop())
	ref, err := m.Snapshot(context.Background(), 7)
	if err != nil {
		t.Fatalf("snapshot must survive a chart failure: %v", err)
	}
	if ref.ImagePath != "" {
		t.Error("got a chart path from a failing renderer")
	}
	if ref.Caption == "" {
		t.Error("text caption lost")
	}
}

func TestMarketSummaryFailureIsFatal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMarket(srv.Client(), srv.URL, t.TempDir(), logx.Nop())
	if _, err := m.Snapshot(context.Background(), 7); err == nil {
		t.Error("snapshot succeeded with the summary endpoint down")
	}
}

func TestMarketHistorySpans(t *testing.T) {
	t.Parallel()

	var gotDays []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDays = append(gotDays, r.URL.Query().Get("days"))
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	m := NewMarket(srv.Client(), srv.URL, t.TempDir(), logx.Nop())

	if _, err := m.History(context.Background(), 7, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := m.History(context.Background(), 7, 0); err != nil {
		t.Fatal(err)
	}
	if len(gotDays) != 2 || gotDays[0] != "30" || gotDays[1] != "max" {
		t.Errorf("requested days = %v, want [30 max]", gotDays)
	}
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{12.3456, "12.35"},
		{999, "999.00"},
		{1500, "1.5K"},
		{2_000_000, "2.00M"},
		{3_500_000_000, "3.50B"},
		{1_260_000_000_000, "1.26T"},
	}
	for _, tc := range tests {
		if got := formatAmount(tc.in); got != tc.want {
			t.Errorf("formatAmount(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
