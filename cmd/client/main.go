package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/session"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg, err := client.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input := bufio.NewScanner(os.Stdin)
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		if username, err = promptUsername(input, os.Stdout); err != nil {
			return err
		}
	}

	chat := session.New(client.New(cfg, log), log, cfg.ReadyTimeout)
	if err := chat.Start(ctx); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer chat.Close()

	view := newRenderer(os.Stdout, username)
	fmt.Fprintf(os.Stdout, "Connecting to %s as %s. Type /quit to leave, /reconnect to reconnect.\n", cfg.URL(), username)
	go view.follow(ctx, chat)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for input.Scan() {
			lines <- input.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch text := strings.TrimSpace(line); text {
			case "":
			case "/quit":
				return nil
			case "/reconnect":
				if err := chat.Reconnect(ctx); err != nil {
					view.notice("reconnect failed: " + err.Error())
				}
			default:
				if !chat.Send(username, text) {
					view.notice("not connected, message dropped")
				}
			}
		}
	}
}

// promptUsername asks until a non-blank name is entered.
func promptUsername(in *bufio.Scanner, out io.Writer) (string, error) {
	for {
		fmt.Fprint(out, "Enter your name: ")
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if name := strings.TrimSpace(in.Text()); name != "" {
			return name, nil
		}
	}
}
