package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// SessionPayload mirrors the conversational session state the server
// round-trips on every turn. The client stores it verbatim between
// invocations; the server is stateless.
type SessionPayload struct {
	ID          string        `json:"id"`
	Phase       string        `json:"phase"`
	Requirement string        `json:"requirement,omitempty"`
	DraftID     string        `json:"draft_id,omitempty"`
	History     []TurnPayload `json:"history,omitempty"`
}

// TurnPayload mirrors one conversation turn.
type TurnPayload struct {
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	Timestamp string             `json:"timestamp"`
	Citations []CitationResponse `json:"citations,omitempty"`
}

// ChatRequest represents the chat API request.
type ChatRequest struct {
	Session *SessionPayload `json:"session,omitempty"`
	Message string          `json:"message"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	Session   *SessionPayload    `json:"session"`
	Reply     string             `json:"reply"`
	Draft     *DraftResponse     `json:"draft,omitempty"`
	Impact    string             `json:"impact,omitempty"`
	Citations []CitationResponse `json:"citations,omitempty"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var sessionPath string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Draft an RFQ conversationally",
		Long: `Starts an interactive drafting conversation. With a message argument,
sends a single turn instead. Session state is kept in a local file so a
conversation can span invocations.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runChatTurn(cmd, sessionPath, args[0])
			}
			return runChatInteractive(cmd, sessionPath)
		},
	}

	cmd.Flags().StringVarP(&sessionPath, "session", "s", ".rfqsmith-session.json", "Session state file")

	return cmd
}

func runChatTurn(cmd *cobra.Command, sessionPath, message string) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	session, err := loadSession(sessionPath)
	if err != nil {
		return err
	}

	resp, err := sendTurn(api, session, message)
	if err != nil {
		return err
	}

	printTurn(resp)
	return saveSession(sessionPath, resp.Session)
}

func runChatInteractive(cmd *cobra.Command, sessionPath string) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	session, err := loadSession(sessionPath)
	if err != nil {
		return err
	}

	if session == nil {
		fmt.Println("Describe the component you want to source. Type 'exit' to quit.")
	} else {
		fmt.Printf("Resuming session %s. Type 'exit' to quit.\n", session.ID)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		resp, err := sendTurn(api, session, message)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Message)
				continue
			}
			return err
		}

		printTurn(resp)
		session = resp.Session
		if err := saveSession(sessionPath, session); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func sendTurn(api *APIClient, session *SessionPayload, message string) (*ChatResponse, error) {
	resp, err := api.Post("/chat", ChatRequest{Session: session, Message: message})
	if err != nil {
		return nil, err
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Data, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

func printTurn(resp *ChatResponse) {
	fmt.Println(resp.Reply)
	if resp.Draft != nil {
		fmt.Printf("\n--- %s (%s) ---\n%s\n", resp.Draft.Title, resp.Draft.ID, resp.Draft.Body)
	}
	if resp.Impact != "" {
		fmt.Printf("\nImpact: %s\n", resp.Impact)
	}
	if len(resp.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range resp.Citations {
			fmt.Printf("  - %s (%.2f)\n", c.Filename, c.Score)
		}
	}
}

func loadSession(path string) (*SessionPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session SessionPayload
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

func saveSession(path string, session *SessionPayload) error {
	if session == nil {
		return nil
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
