// Command songlist-tui is a standalone operator dashboard: it polls a
// replica's pkg/roomql GraphQL endpoint over HTTP and renders the
// songlist with pkg/dashboard, without linking into the protocol itself.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cluso-labs/songlist3pc/pkg/dashboard"
)

const songsQuery = `{ songs { name url } }`

// httpSnapshotter implements dashboard.Snapshotter against a replica's
// /graphql endpoint, the out-of-process counterpart to
// dashboard.RoomSnapshotter.
type httpSnapshotter struct {
	endpoint string
	client   *http.Client
}

type graphqlEnvelope struct {
	Data struct {
		Songs []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"songs"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (s httpSnapshotter) Snapshot(ctx context.Context) (map[string]string, error) {
	body := strings.NewReader(fmt.Sprintf(`{"query":%q}`, songsQuery))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env graphqlEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if len(env.Errors) > 0 {
		return nil, fmt.Errorf("songlist-tui: %s", env.Errors[0].Message)
	}

	out := make(map[string]string, len(env.Data.Songs))
	for _, s := range env.Data.Songs {
		out[s.Name] = s.URL
	}
	return out, nil
}

func main() {
	endpoint := flag.String("endpoint", "http://localhost:9100/graphql", "Replica roomql endpoint to poll")
	selfID := flag.String("label", "", "Label shown in the dashboard title (defaults to the endpoint)")
	pollRate := flag.Duration("poll", time.Second, "Poll interval")
	flag.Parse()

	label := *selfID
	if label == "" {
		label = *endpoint
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	source := httpSnapshotter{endpoint: *endpoint, client: &http.Client{Timeout: 3 * time.Second}}
	if err := dashboard.Run(ctx, source, label, *pollRate); err != nil {
		fmt.Fprintf(os.Stderr, "songlist-tui: %v\n", err)
		os.Exit(1)
	}
}
