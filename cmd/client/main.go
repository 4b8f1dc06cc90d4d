package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"ws-chat/client"
	"ws-chat/domain/event"
	"ws-chat/projection"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `envconfig:"CHAT_SERVER_ADDR" default:"localhost:8000"`
	Token         string `envconfig:"CHAT_TOKEN" required:"true"`
	ChatID        string `envconfig:"CHAT_ID"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"INFO"`
	// CHAT_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
	AutoAck bool `envconfig:"CHAT_AUTO_ACK" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the gateway, prints inbound events and posts every stdin line to CHAT_ID.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	var chatID uuid.UUID
	if config.ChatID != "" {
		id, err := uuid.Parse(config.ChatID)
		if err != nil {
			return exitConfig, fmt.Errorf("config error: CHAT_ID: %w", err)
		}
		chatID = id
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Enable = config.Colours

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect
	c, err := client.Dial(ctx, log, config.ServerAddress, config.Token, config.AutoAck)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()
	color.Green.Printf(">>> Connected to %s (Ctrl+C to quit)\n", config.ServerAddress)

	// 4. Stdin lines are posted to the configured chat
	if chatID != uuid.Nil {
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if err := c.Post(chatID, text); err != nil {
					log.Error("Post failed", "error", err)
					stop()
					return
				}
			}
		}()
	} else {
		color.Yellow.Println("CHAT_ID is not set, listening only")
	}

	// 5. Reception loop, until Ctrl+C or the server closes the connection.
	timeline := projection.NewTimeline()
	handle := func(f client.Frame) {
		if line := render(f, timeline.Consume(f)); line != "" {
			fmt.Println(line)
		}
	}
	if err := c.Listen(ctx, handle); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

// render formats a frame. An UPDATE_READERS without new readers renders nothing.
func render(f client.Frame, newReaders []string) string {
	at := time.Unix(f.CreatedAt, 0).Format(time.TimeOnly)
	switch f.Type {
	case event.KindMessage:
		author := color.Cyan.Render(f.User.Username)
		if f.FromSelf() {
			author = color.Gray.Render("me")
		}
		return fmt.Sprintf("[%s] %s %s: %s", at, color.Gray.Render(f.ChatID.String()[:8]), author, f.Message)
	case event.KindUpdateReaders:
		if len(newReaders) == 0 {
			return ""
		}
		return color.Gray.Sprintf("[%s] %s read by %s", time.Unix(f.UpdatedAt, 0).Format(time.TimeOnly),
			f.MessageID.String()[:8], strings.Join(newReaders, ", "))
	default:
		return color.Yellow.Sprintf("unexpected event %q", f.Type)
	}
}
