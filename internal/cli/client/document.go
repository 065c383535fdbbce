package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentResponse mirrors the document API payload.
type DocumentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Category   string `json:"category"`
	SizeBytes  int64  `json:"size_bytes"`
	Text       string `json:"text,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

// DocumentListResponse mirrors one page of the document listing.
type DocumentListResponse struct {
	Items   []DocumentResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

// ImageResponse mirrors the registered-image API payload.
type ImageResponse struct {
	ID          int64   `json:"id"`
	DocumentID  string  `json:"document_id"`
	Description string  `json:"description,omitempty"`
	Label       string  `json:"label"`
	Confidence  float32 `json:"confidence"`
	Format      string  `json:"format"`
	Page        int     `json:"page"`
}

// DocumentCmd creates the document parent command.
func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"doc"},
		Short:   "Manage sourcing documents",
		Long:    "Upload, list, inspect and delete documents in the knowledge base.",
	}

	cmd.AddCommand(DocumentUploadCmd())
	cmd.AddCommand(DocumentListCmd())
	cmd.AddCommand(DocumentGetCmd())
	cmd.AddCommand(DocumentDeleteCmd())
	cmd.AddCommand(DocumentUploadImageCmd())

	return cmd
}

// DocumentUploadCmd creates the document upload command.
func DocumentUploadCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF or DOCX document",
		Long:  "Uploads a document; the server extracts, chunks and embeds its text.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentUpload(cmd, args[0], category, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Document category (design, safety, quality, manufacturing, general)")

	return cmd
}

func runDocumentUpload(cmd *cobra.Command, localPath, category string, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	fields := map[string]string{}
	if category != "" {
		fields["category"] = category
	}

	fmt.Printf("Uploading %s...\n", filepath.Base(localPath))
	resp, err := api.UploadFile("/documents/upload", localPath, fields, nil)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var doc DocumentResponse
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Uploaded %s (%d bytes)\n", doc.Filename, doc.SizeBytes)
	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Category: %s\n", doc.Category)
	return nil
}

// DocumentListCmd creates the document list command.
func DocumentListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of documents")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocumentList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := api.Get("/documents/?" + params.Encode())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var page DocumentListResponse
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, doc := range page.Items {
		fmt.Printf("%s  %-12s  %8d bytes  %s\n", doc.ID, doc.Category, doc.SizeBytes, doc.Filename)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Printf("\nMore documents available. Use --cursor %s\n", page.Cursor)
	}
	return nil
}

// DocumentGetCmd creates the document get command.
func DocumentGetCmd() *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentGet(cmd, args[0], showText, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&showText, "text", false, "Print the extracted text")

	return cmd
}

func runDocumentGet(cmd *cobra.Command, id string, showText, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var doc DocumentResponse
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Filename: %s\n", doc.Filename)
	fmt.Printf("Category: %s\n", doc.Category)
	fmt.Printf("Size: %d bytes\n", doc.SizeBytes)
	fmt.Printf("Uploaded: %s\n", doc.UploadedAt)
	if showText {
		fmt.Printf("\n%s\n", strings.TrimSpace(doc.Text))
	}
	return nil
}

// DocumentDeleteCmd creates the document delete command.
func DocumentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiFromCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/documents/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Println("Document deleted")
			return nil
		},
	}
}

// DocumentUploadImageCmd creates the document upload-image command.
func DocumentUploadImageCmd() *cobra.Command {
	var (
		description string
		page        int
	)

	cmd := &cobra.Command{
		Use:   "upload-image <document-id> <file>",
		Short: "Register an image under a document",
		Long:  "Uploads an image; the server classifies it and embeds it for image search.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentUploadImage(cmd, args[0], args[1], description, page, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Image description")
	cmd.Flags().IntVar(&page, "page", 0, "Source page number")

	return cmd
}

func runDocumentUploadImage(cmd *cobra.Command, documentID, localPath, description string, page int, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(localPath)), ".")
	fields := map[string]string{"format": format}
	if description != "" {
		fields["description"] = description
	}
	if page > 0 {
		fields["page"] = strconv.Itoa(page)
	}

	resp, err := api.UploadFile("/documents/"+url.PathEscape(documentID)+"/images", localPath, fields, nil)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var image ImageResponse
	if err := json.Unmarshal(resp.Data, &image); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(image, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Registered image %d under %s\n", image.ID, image.DocumentID)
	fmt.Printf("Label: %s (%.2f)\n", image.Label, image.Confidence)
	return nil
}
