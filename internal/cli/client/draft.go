package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

// DraftResponse mirrors the draft API payload.
type DraftResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CitationResponse mirrors one source citation.
type CitationResponse struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float32 `json:"score"`
}

// CreateDraftResponse mirrors the draft creation payload.
type CreateDraftResponse struct {
	Draft     *DraftResponse     `json:"draft"`
	Fallback  bool               `json:"fallback"`
	Reason    string             `json:"reason,omitempty"`
	Citations []CitationResponse `json:"citations,omitempty"`
}

// EditDraftResponse mirrors the draft edit payload.
type EditDraftResponse struct {
	Draft    *DraftResponse `json:"draft"`
	Changed  bool           `json:"changed"`
	Fallback bool           `json:"fallback"`
	Reason   string         `json:"reason,omitempty"`
	Impact   string         `json:"impact,omitempty"`
}

// DraftListResponse mirrors one page of the draft listing.
type DraftListResponse struct {
	Items   []DraftResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

// ExportImageResponse carries one image's bytes in an export bundle.
type ExportImageResponse struct {
	ID     int64  `json:"id"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// ExportResponse mirrors the export bundle payload.
type ExportResponse struct {
	DraftID string                `json:"draft_id"`
	Title   string                `json:"title"`
	Body    string                `json:"body"`
	Images  []ExportImageResponse `json:"images,omitempty"`
}

// DraftCmd creates the draft parent command.
func DraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage RFQ drafts",
		Long:  "Create, edit, review and export RFQ drafts.",
	}

	cmd.AddCommand(DraftCreateCmd())
	cmd.AddCommand(DraftListCmd())
	cmd.AddCommand(DraftGetCmd())
	cmd.AddCommand(DraftEditCmd())
	cmd.AddCommand(DraftStatusCmd())
	cmd.AddCommand(DraftDeleteCmd())
	cmd.AddCommand(DraftExportCmd())

	return cmd
}

// DraftCreateCmd creates the draft create command.
func DraftCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <requirement>",
		Short: "Draft an RFQ from a requirement",
		Long:  "Generates a structured RFQ draft grounded in the uploaded documents.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDraftCreate(cmd, args[0], outputJSON)
		},
	}
}

func runDraftCreate(cmd *cobra.Command, requirement string, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/drafts/", map[string]string{"requirement": requirement})
	if err != nil {
		return fmt.Errorf("draft creation failed: %w", err)
	}

	var created CreateDraftResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(created, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Created draft %s: %s\n", created.Draft.ID, created.Draft.Title)
	if created.Fallback {
		fmt.Printf("Note: generation fell back to a template (%s)\n", created.Reason)
	}
	if len(created.Citations) > 0 {
		fmt.Println("Sources:")
		for _, c := range created.Citations {
			fmt.Printf("  - %s (%.2f)\n", c.Filename, c.Score)
		}
	}
	fmt.Printf("\n%s\n", created.Draft.Body)
	return nil
}

// DraftListCmd creates the draft list command.
func DraftListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDraftList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of drafts")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDraftList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := api.Get("/drafts/?" + params.Encode())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var page DraftListResponse
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No drafts found.")
		return nil
	}

	for _, draft := range page.Items {
		fmt.Printf("%s  %-9s  %s\n", draft.ID, draft.Status, draft.Title)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Printf("\nMore drafts available. Use --cursor %s\n", page.Cursor)
	}
	return nil
}

// DraftGetCmd creates the draft get command.
func DraftGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDraftGet(cmd, args[0], outputJSON)
		},
	}
}

func runDraftGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/drafts/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var draft DraftResponse
	if err := json.Unmarshal(resp.Data, &draft); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(draft, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID: %s\n", draft.ID)
	fmt.Printf("Status: %s\n", draft.Status)
	fmt.Printf("Updated: %s\n", draft.UpdatedAt)
	fmt.Printf("\n%s\n", draft.Body)
	return nil
}

// DraftEditCmd creates the draft edit command.
func DraftEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <instruction>",
		Short: "Revise a draft with an instruction",
		Long:  "Applies one edit instruction to a draft and reports the change impact.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDraftEdit(cmd, args[0], args[1], outputJSON)
		},
	}
}

func runDraftEdit(cmd *cobra.Command, id, instruction string, outputJSON bool) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/drafts/"+url.PathEscape(id)+"/edit", map[string]string{"instruction": instruction})
	if err != nil {
		return fmt.Errorf("edit failed: %w", err)
	}

	var edited EditDraftResponse
	if err := json.Unmarshal(resp.Data, &edited); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(edited, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	switch {
	case edited.Fallback:
		fmt.Printf("Draft left unchanged (%s)\n", edited.Reason)
	case !edited.Changed:
		fmt.Println("The instruction produced no changes.")
	default:
		fmt.Printf("Updated draft %s\n", edited.Draft.ID)
	}
	if edited.Impact != "" {
		fmt.Printf("\nImpact: %s\n", edited.Impact)
	}
	if edited.Changed {
		fmt.Printf("\n%s\n", edited.Draft.Body)
	}
	return nil
}

// DraftStatusCmd creates the draft status command.
func DraftStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a draft's review status",
		Long:  "Moves a draft through its review lifecycle: draft, review, approved, rejected, sent.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiFromCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := api.Patch("/drafts/"+url.PathEscape(args[0])+"/status", map[string]string{"status": args[1]})
			if err != nil {
				return fmt.Errorf("status change failed: %w", err)
			}

			var draft DraftResponse
			if err := json.Unmarshal(resp.Data, &draft); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Draft %s is now %s\n", draft.ID, draft.Status)
			return nil
		},
	}
}

// DraftDeleteCmd creates the draft delete command.
func DraftDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiFromCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Delete("/drafts/" + url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Println("Draft deleted")
			return nil
		},
	}
}

// DraftExportCmd creates the draft export command.
func DraftExportCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a draft with its referenced images",
		Long:  "Writes the draft body as Markdown plus every referenced image to a directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraftExport(cmd, args[0], outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")

	return cmd
}

func runDraftExport(cmd *cobra.Command, id, outDir string) error {
	api, err := apiFromCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/drafts/"+url.PathEscape(id)+"/export", struct{}{})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	var bundle ExportResponse
	if err := json.Unmarshal(resp.Data, &bundle); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	bodyPath := filepath.Join(outDir, bundle.DraftID+".md")
	if err := os.WriteFile(bodyPath, []byte(bundle.Body), 0644); err != nil {
		return fmt.Errorf("failed to write draft body: %w", err)
	}
	fmt.Printf("Wrote %s\n", bodyPath)

	for _, image := range bundle.Images {
		name := fmt.Sprintf("image-%d.%s", image.ID, image.Format)
		imagePath := filepath.Join(outDir, name)
		if err := os.WriteFile(imagePath, image.Data, 0644); err != nil {
			return fmt.Errorf("failed to write image %d: %w", image.ID, err)
		}
		fmt.Printf("Wrote %s\n", imagePath)
	}
	return nil
}
