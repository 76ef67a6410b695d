// Command feedtail logs in to a Warbler server and prints new messages
// from followed users as they arrive on the live feed.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warbler/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:5000", "API server host")
	username := flag.String("username", "", "Account username")
	password := flag.String("password", "password123", "Account password")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: feedtail -username <name> [-password <pw>] [-host <host:port>]")
		os.Exit(2)
	}

	token, err := login(*host, *username, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Tailing feed for %s on %s", *username, *host)
	if err := tail(ctx, *host, token, os.Stdout); err != nil {
		log.Fatalf("Feed closed: %v", err)
	}
}

func login(host, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post("http://"+host+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", errors.New("server returned no token")
	}
	return result.Token, nil
}

// tail streams feed events to w until ctx is done or the server hangs up.
func tail(ctx context.Context, host, token string, w io.Writer) error {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws/feed"}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", u.String(), err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var ev notifications.FeedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("skipping malformed event: %v", err)
			continue
		}
		_, _ = fmt.Fprintln(w, formatEvent(ev))
	}
}

func formatEvent(ev notifications.FeedEvent) string {
	author := ev.Username
	if author == "" {
		author = fmt.Sprintf("user %d", ev.UserID)
	}
	return fmt.Sprintf("[%s] @%s: %s", ev.Timestamp.Local().Format("15:04:05"), author, ev.Text)
}
