package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/session"
	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Base URL of the relay server")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP timeout")
	flag.Parse()

	if err := run(os.Stdout, strings.TrimRight(*addr, "/"), &http.Client{Timeout: *timeout}); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, baseURL string, httpClient *http.Client) error {
	var stats server.Stats
	if err := getJSON(httpClient, baseURL+"/stats", &stats); err != nil {
		return err
	}
	var messages []message.Message
	if err := getJSON(httpClient, baseURL+"/messages", &messages); err != nil {
		return err
	}

	fmt.Fprintf(out, "connections: %d  messages: %d  rss: %d bytes\n\n",
		stats.Connections, stats.Messages, stats.RSSBytes)
	renderMessages(out, messages, time.Now())
	return nil
}

func getJSON(httpClient *http.Client, url string, dst any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s failed: %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s failed: %w", url, err)
	}
	return nil
}

func renderMessages(out io.Writer, messages []message.Message, now time.Time) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Time", "ID", "Sender", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for i, msg := range messages {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			session.FormatTime(msg.Timestamp, now),
			msg.ID,
			msg.Sender,
			msg.Content,
		})
	}
	table.Render()
}
