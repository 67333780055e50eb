package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL      string
	conversationID string
	mode           string
	showSources    bool
	showExplain    bool
)

type askRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

type askResponse struct {
	Answer     string  `json:"answer"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	CacheTier  string  `json:"cache_tier"`
	Sources    []struct {
		SourceDocument string  `json:"source_document"`
		Text           string  `json:"text"`
		Score          float32 `json:"score"`
	} `json:"sources"`
	Explanation *struct {
		QueryType string            `json:"query_type"`
		Score     int               `json:"score"`
		Factors   map[string]string `json:"factors"`
		Reasoning string            `json:"reasoning"`
	} `json:"explanation"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask a question against the answerhub server",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}

	rootCmd.Flags().StringVar(&serverURL, "server", envOr("ANSWERHUB_URL", "http://localhost:9020"), "server base URL")
	rootCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation id for follow-up questions")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "", "force a mode: simple or adaptive")
	rootCmd.Flags().BoolVarP(&showSources, "sources", "s", false, "print retrieved sources")
	rootCmd.Flags().BoolVarP(&showExplain, "explain", "e", false, "print the classification explanation")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	body, err := json.Marshal(askRequest{
		Query:          query,
		ConversationID: conversationID,
		Mode:           mode,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Post(serverURL+"/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var answer askResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Println(answer.Answer)
	fmt.Printf("\n[strategy=%s confidence=%.2f", answer.Strategy, answer.Confidence)
	if answer.CacheTier != "" {
		fmt.Printf(" cache=%s", answer.CacheTier)
	}
	fmt.Println("]")

	if showSources {
		for i, s := range answer.Sources {
			fmt.Printf("\n[%d] %s (%.3f)\n%s\n", i+1, s.SourceDocument, s.Score, s.Text)
		}
	}
	if showExplain && answer.Explanation != nil {
		fmt.Printf("\nquery_type=%s score=%d\n", answer.Explanation.QueryType, answer.Explanation.Score)
		for factor, detail := range answer.Explanation.Factors {
			fmt.Printf("  %s: %s\n", factor, detail)
		}
		fmt.Println(answer.Explanation.Reasoning)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
