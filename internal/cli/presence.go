package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newPresenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Online presence commands",
	}

	cmd.AddCommand(newPresenceListCmd())
	cmd.AddCommand(newPresenceWatchCmd())
	cmd.AddCommand(newPresenceConnectCmd())

	return cmd
}

func newPresenceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users currently connected",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Presence
			if err := client.Get(cmd.Context(), "/api/v1/presence", &result); err != nil {
				return err
			}
			newOutput(cmd).Print(result)
			return nil
		},
	}
}

func newPresenceWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream presence changes over SSE without going online",
		Long: `Connect to the presence SSE endpoint and print each online-users
snapshot as it changes. Watching does not mark you as online.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchPresence(ctx, newOutput(cmd))
		},
	}
}

func newPresenceConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Go online over WebSocket and print presence pushes",
		Long: `Open a WebSocket session with the current token. You appear in the
online users list until you disconnect. Connecting again elsewhere with the
same account ends this session.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return connectPresence(ctx, newOutput(cmd))
		},
	}
}

func watchPresence(ctx context.Context, out *Output) error {
	resp, err := client.Stream(ctx, "/api/v1/presence/events")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	err = readSSE(resp.Body, func(event, data string) {
		out.PrintEvent(time.Now(), event, rawData(data))
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	out.PrintMessage("Disconnected")
	return nil
}

// readSSE parses an event stream, calling fn for each complete named event
func readSSE(r io.Reader, fn func(event, data string)) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if currentEvent != "" {
				fn(currentEvent, strings.Join(dataLines, "\n"))
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	return scanner.Err()
}

// rawData keeps JSON payloads as-is and quotes anything else
func rawData(data string) json.RawMessage {
	if json.Valid([]byte(data)) {
		return json.RawMessage(data)
	}
	quoted, _ := json.Marshal(data)
	return quoted
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func connectPresence(ctx context.Context, out *Output) error {
	wsURL, err := client.WebSocketURL("/api/v1/ws")
	if err != nil {
		return err
	}

	header := http.Header{}
	if token := client.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// unblock ReadMessage on Ctrl+C
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseNormalClosure {
				return fmt.Errorf("server closed session: %s (%d)", closeErr.Text, closeErr.Code)
			}
			if ctx.Err() == nil && !errors.As(err, &closeErr) {
				return fmt.Errorf("read failed: %w", err)
			}
			out.PrintMessage("Disconnected")
			return nil
		}

		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		out.PrintEvent(time.Now(), env.Event, env.Data)
	}
}
