package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/config"
	"github.com/Tiliavir/personal-assistant/internal/model"
)

var (
	chatServer string
	chatWidth  int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant through a running server",
	Long: `Start an interactive chat against a running "assistant serve".

The whole conversation is sent with every message. Type /reset to start
over and /exit (or Ctrl-D) to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:8000", "Base URL of the assistant server")
	chatCmd.Flags().IntVar(&chatWidth, "width", 80, "Word wrap width for rendered replies")
}

func runChat(cmd *cobra.Command, args []string) error {
	historyPath := ""
	if base, err := config.BaseDir(); err == nil {
		historyPath = filepath.Join(base, "chat.history")
	}
	in := newLineInput(historyPath)
	defer in.Close()

	client := &http.Client{Timeout: 2 * time.Minute}
	var history []model.ChatMessage
	for {
		line, err := in.ReadLine("you> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			history = nil
			fmt.Println("Conversation cleared.")
			continue
		}

		now := time.Now().UTC()
		history = append(history, model.ChatMessage{Role: model.RoleUser, Content: line, Timestamp: &now})
		reply, err := postChat(cmd.Context(), client, chatServer, history)
		if err != nil {
			// Drop the unanswered turn so a retry does not duplicate it.
			history = history[:len(history)-1]
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		replied := time.Now().UTC()
		history = append(history, model.ChatMessage{Role: model.RoleAssistant, Content: reply, Timestamp: &replied})
		fmt.Println(renderMarkdown(reply, chatWidth))
	}
}

type chatRequest struct {
	Messages []model.ChatMessage `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error"`
}

// postChat sends the conversation to POST {server}/api/chat and returns the reply.
func postChat(ctx context.Context, client *http.Client, server string, messages []model.ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	url := strings.TrimRight(server, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contacting %s: %w", server, err)
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding reply (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error == "" {
			out.Error = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("server: %s", out.Error)
	}
	return out.Reply, nil
}

// renderMarkdown renders content for the terminal, returning it unchanged
// when glamour cannot.
func renderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
