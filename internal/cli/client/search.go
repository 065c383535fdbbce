package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents one ranked document hit.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ImageSearchResult represents one ranked image hit.
type ImageSearchResult struct {
	ID          int64   `json:"id"`
	DocumentID  string  `json:"document_id"`
	Description string  `json:"description,omitempty"`
	Format      string  `json:"format"`
	Page        int     `json:"page"`
	Score       float64 `json:"score"`
}

// ImageSearchResponse represents the image search API response.
type ImageSearchResponse struct {
	Results []ImageSearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		topK   int
		images bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long:  "Searches documents with hybrid semantic and keyword ranking. With --images, searches extracted images instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if images {
				return runImageSearch(cmd, args[0], topK, outputJSON)
			}
			return runSearch(cmd, args[0], topK, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Maximum number of results (server default when 0)")
	cmd.Flags().BoolVar(&images, "images", false, "Search images instead of documents")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, topK int, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/search", SearchRequest{Query: query, TopK: topK})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, result.Filename, result.Score)
		if result.Snippet != "" {
			fmt.Printf("   %s\n", result.Snippet)
		}
		fmt.Printf("   Category: %s\n", result.Category)
		fmt.Printf("   ID: %s\n", result.DocumentID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
	return nil
}

func runImageSearch(cmd *cobra.Command, query string, topK int, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/search/images", SearchRequest{Query: query, TopK: topK})
	if err != nil {
		return fmt.Errorf("image search failed: %w", err)
	}

	var searchResp ImageSearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No matching images found.")
		return nil
	}

	fmt.Printf("Found %d images:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Printf("%d. image %d (%.2f)\n", i+1, result.ID, result.Score)
		if result.Description != "" {
			fmt.Printf("   %s\n", result.Description)
		}
		fmt.Printf("   Document: %s", result.DocumentID)
		if result.Page > 0 {
			fmt.Printf(" (page %d)", result.Page)
		}
		fmt.Println()
	}
	return nil
}
