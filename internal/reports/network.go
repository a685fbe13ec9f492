package reports

import (
	"context"
	"fmt"
	"sort"

	st "github.com/showwin/speedtest-go/speedtest"

	"reportbot/internal/content"
	"reportbot/pkg/logx"
)

// Network measures the host's connectivity with speedtest-go and
// reports it as a text-only snapshot (no chart).
type Network struct {
	log logx.Logger
}

func NewNetwork(log logx.Logger) *Network {
	return &Network{log: log}
}

func (n *Network) Snapshot(ctx context.Context, chatID int64) (content.Reference, error) {
	// Fresh client per run; speedtest-go keeps package-level state otherwise.
	stc := st.New()

	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return content.Reference{}, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return content.Reference{}, fmt.Errorf("no speedtest servers available")
	}
	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	srv := servers[0]

	if err := srv.PingTestContext(ctx, nil); err != nil {
		return content.Reference{}, fmt.Errorf("ping test: %w", err)
	}
	if err := srv.DownloadTestContext(ctx); err != nil {
		return content.Reference{}, fmt.Errorf("download test: %w", err)
	}
	if err := srv.UploadTestContext(ctx); err != nil {
		return content.Reference{}, fmt.Errorf("upload test: %w", err)
	}
	defer func() {
		stc.Snapshots().Clean()
		stc.Reset()
	}()

	caption := fmt.Sprintf(
		"🌐 Network snapshot\nServer: %s (%s)\nPing: %d ms\nDown: %.1f Mbps\nUp: %.1f Mbps",
		srv.Name, srv.Country,
		srv.Latency.Milliseconds(),
		srv.DLSpeed.Mbps(), srv.ULSpeed.Mbps())

	n.log.Debug("speedtest done",
		logx.String("server", srv.Name),
		logx.Float64("down_mbps", srv.DLSpeed.Mbps()),
		logx.Float64("up_mbps", srv.ULSpeed.Mbps()))

	return content.Reference{Caption: caption}, nil
}
