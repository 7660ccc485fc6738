package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Stream live facility events",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topic")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		lastEventID := ""
		for {
			err := streamEvents(ctx, topics, &lastEventID)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "stream error: %v (reconnecting)\n", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
		}
	},
}

// streamEvents connects to the server's SSE endpoint and prints events until
// the context is canceled or the connection drops. lastEventID is updated as
// events arrive so reconnects can replay missed events.
func streamEvents(ctx context.Context, topics []string, lastEventID *string) error {
	streamURL := strings.TrimSuffix(httpURL, "/") + "/v1/events/stream"
	if len(topics) > 0 {
		q := url.Values{}
		q.Set("topics", strings.Join(topics, ","))
		streamURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if *lastEventID != "" {
		req.Header.Set("Last-Event-ID", *lastEventID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var topic, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			*lastEventID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			// Blank line ends the event. Keepalive comments have no topic.
			if topic != "" {
				printEvent(topic, data)
			}
			topic, data = "", ""
		}
	}
	return scanner.Err()
}

func printEvent(topic, data string) {
	if jsonOutput {
		if data == "" {
			data = "null"
		}
		fmt.Printf("{\"topic\":%q,\"data\":%s}\n", topic, data)
		return
	}

	ts := time.Now().Format("15:04:05")
	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		fmt.Printf("[%s] %s\n", ts, topic)
		return
	}

	var parts []string
	for _, k := range []string{"session_id", "plate", "reason", "amount_cents", "gate", "state", "blocked"} {
		if v, ok := payload[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	fmt.Printf("[%s] %s  %s\n", ts, topic, strings.Join(parts, " "))
}

func init() {
	watchCmd.Flags().StringSlice("topic", nil, "topic patterns to subscribe to (e.g. parkd.session.*, parkd.>)")
}
