package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a file for text extraction and embedding",
	Long: `Upload a file for text extraction and embedding.

Examples:
  chatrelay upload ./notes.txt
  chatrelay upload ./paper.pdf --as-source`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		asSource, _ := cmd.Flags().GetBool("as-source")

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
		if err := mw.Close(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(cmd.Context(), "POST", client.baseURL+"/v1/upload", &buf)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := client.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("server not reachable — is chatrelay running? (%w)", err)
		}

		var result struct {
			Text         string    `json:"text"`
			FileCategory string    `json:"fileCategory"`
			FileName     string    `json:"fileName"`
			FileSize     int       `json:"fileSize"`
			Embedding    []float32 `json:"embedding"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Extracted %s (%s, %d bytes)", result.FileName, result.FileCategory, result.FileSize)
		if result.Embedding != nil {
			printStatus("Embedding", "%d dimensions", len(result.Embedding))
		}

		if asSource {
			body := map[string]any{
				"name": filepath.Base(path),
				"text": result.Text,
			}
			if result.Embedding != nil {
				body["embedding"] = result.Embedding
			}
			srcResp, err := client.post(cmd.Context(), "/v1/sources", body)
			if err != nil {
				return err
			}
			var src struct {
				ID string `json:"id"`
			}
			if err := decodeJSON(srcResp, &src); err != nil {
				return err
			}
			printSuccess("Stored as source %s", src.ID)
			return nil
		}

		fmt.Println(result.Text)
		return nil
	},
}

func init() {
	uploadCmd.Flags().Bool("as-source", false, "store the extracted text as a source")
}

// --- sources ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage stored sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/sources")
		if err != nil {
			return err
		}
		var listing struct {
			Sources []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				Text string `json:"text"`
			} `json:"sources"`
		}
		if err := decodeJSON(resp, &listing); err != nil {
			return err
		}

		selResp, err := client.get(cmd.Context(), "/v1/sources/selection")
		if err != nil {
			return err
		}
		var selection struct {
			SelectedIDs []string `json:"selectedIds"`
		}
		if err := decodeJSON(selResp, &selection); err != nil {
			return err
		}
		selected := make(map[string]bool, len(selection.SelectedIDs))
		for _, id := range selection.SelectedIDs {
			selected[id] = true
		}

		if len(listing.Sources) == 0 {
			fmt.Println("No sources stored.")
			return nil
		}
		for _, src := range listing.Sources {
			marker := " "
			if selected[src.ID] {
				marker = colorize(colorGreen, "*")
			}
			preview := src.Text
			if len(preview) > 60 {
				preview = preview[:60] + "..."
			}
			preview = strings.ReplaceAll(preview, "\n", " ")
			fmt.Printf("%s %s  %s  %s\n", marker, colorize(colorCyan, src.ID[:8]), src.Name, preview)
		}
		return nil
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a source from a file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var text string
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			text = string(data)
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			text = string(data)
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("source text is empty")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/sources", map[string]string{
			"name": args[0],
			"text": text,
		})
		if err != nil {
			return err
		}
		var src struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(resp, &src); err != nil {
			return err
		}
		printSuccess("Stored source %s", src.ID)
		return nil
	},
}

var sourcesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/v1/sources/"+args[0])
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		printSuccess("Removed source %s", args[0])
		return nil
	},
}

var sourcesSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Select a source into chat context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.put(cmd.Context(), "/v1/sources/"+args[0]+"/selection")
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		printSuccess("Selected source %s", args[0])
		return nil
	},
}

var sourcesDeselectCmd = &cobra.Command{
	Use:   "deselect <id>",
	Short: "Deselect a source from chat context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/v1/sources/"+args[0]+"/selection")
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		printSuccess("Deselected source %s", args[0])
		return nil
	},
}

func init() {
	sourcesAddCmd.Flags().String("file", "", "file to read the source text from (default: stdin)")
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesRmCmd)
	sourcesCmd.AddCommand(sourcesSelectCmd)
	sourcesCmd.AddCommand(sourcesDeselectCmd)
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a message and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		model, _ := cmd.Flags().GetString("model")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"messages": []map[string]string{
				{"role": "user", "content": message},
			},
		}
		if model != "" {
			body["model"] = model
		}

		resp, err := client.post(cmd.Context(), "/v1/chat/completions", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(data))
		}

		return printStream(resp.Body)
	},
}

// printStream reads an SSE body and prints streamed delta content as it
// arrives.
func printStream(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			fmt.Println()
			return fmt.Errorf("stream error: %s", chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			fmt.Print(choice.Delta.Content)
		}
	}
	fmt.Println()
	return scanner.Err()
}

func init() {
	askCmd.Flags().String("model", "", "model to use (default: server-configured model)")
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the web and print a summary with sources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/search", map[string]string{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			Summary string `json:"summary"`
			Sources []struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"sources"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Summary)
		if len(result.Sources) > 0 {
			fmt.Println()
			for i, src := range result.Sources {
				fmt.Printf("  [%d] %s — %s\n", i+1, src.Title, src.URL)
			}
		}
		return nil
	},
}

// --- memory ---

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage persistent user memory",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored memory as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/memory")
		if err != nil {
			return err
		}
		var mem any
		if err := decodeJSON(resp, &mem); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(mem)
	},
}

var memoryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add facts or topics to memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		facts, _ := cmd.Flags().GetStringSlice("fact")
		topics, _ := cmd.Flags().GetStringSlice("topic")
		if len(facts) == 0 && len(topics) == 0 {
			return fmt.Errorf("provide at least one --fact or --topic")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{}
		if len(facts) > 0 {
			body["facts"] = facts
		}
		if len(topics) > 0 {
			body["topics"] = topics
		}

		resp, err := client.patch(cmd.Context(), "/v1/memory", body)
		if err != nil {
			return err
		}
		if err := checkStatus(resp); err != nil {
			return err
		}
		printSuccess("Memory updated")
		return nil
	},
}

func init() {
	memoryAddCmd.Flags().StringSlice("fact", nil, "fact to remember (repeatable)")
	memoryAddCmd.Flags().StringSlice("topic", nil, "topic of interest (repeatable)")
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryAddCmd)
}
