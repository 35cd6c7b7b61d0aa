// Package main tails the moderation event feed of a running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commentguard/internal/middleware"
	"commentguard/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	token := flag.String("token", "", "operator token (see: admin token <operator>)")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT secret used to mint a token when -token is empty")
	operator := flag.String("operator", "feedtail", "operator name for a minted token")
	raw := flag.Bool("raw", false, "print frames as received")
	flag.Parse()

	if *token == "" {
		if *secret == "" {
			log.Fatal("either -token or -secret (JWT_SECRET) is required")
		}
		minted, err := middleware.IssueOperatorToken(*secret, *operator, time.Hour, time.Now())
		if err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}
		*token = minted
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/events", RawQuery: url.Values{"token": {*token}}.Encode()}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("dial %s failed with status %d: %v", *host, resp.StatusCode, err)
		}
		log.Fatalf("dial %s failed: %v", *host, err)
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()
	log.Printf("connected to %s", u.Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("read failed: %v", err)
				}
				return
			}
			fmt.Println(format(msg, *raw))
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

// format renders an event envelope as "time type payload". Frames that are
// not envelopes, like the hello frame, are printed unchanged.
func format(msg []byte, raw bool) string {
	if raw {
		return string(msg)
	}
	var env notifications.Envelope
	if err := json.Unmarshal(msg, &env); err != nil || env.Payload == nil {
		return string(msg)
	}
	return fmt.Sprintf("%s %-18s %s", env.At.Format(time.TimeOnly), env.Type, env.Payload)
}
