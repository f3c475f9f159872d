// ABOUTME: Embedded KVI category catalog with id-to-name resolution and user-facing formatting.
// ABOUTME: Mirrors the taxonomy the extractor agent selects from.
package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed data/kvis.json
var kviFS embed.FS

// KVISubcategory is one selectable KVI subcategory.
type KVISubcategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KVICategory is a main category grouping subcategories.
type KVICategory struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Categories []KVISubcategory `json:"categories"`
}

// KVISelection is one category pair chosen by the extractor agent.
type KVISelection struct {
	MainID string `json:"main_id"`
	SubID  string `json:"sub_id"`
}

// kviExtraction is the extractor agent's structured response.
type kviExtraction struct {
	Categories []KVISelection `json:"categories"`
}

// LoadKVICatalog parses the embedded KVI taxonomy.
func LoadKVICatalog() ([]KVICategory, error) {
	data, err := kviFS.ReadFile("data/kvis.json")
	if err != nil {
		return nil, fmt.Errorf("reading KVI catalog: %w", err)
	}
	var catalog []KVICategory
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing KVI catalog: %w", err)
	}
	return catalog, nil
}

// resolveNames returns the display names for a category pair, with explicit
// unknown markers for ids outside the catalog.
func resolveNames(catalog []KVICategory, mainID, subID string) (string, string) {
	for _, main := range catalog {
		if main.ID != mainID {
			continue
		}
		for _, sub := range main.Categories {
			if sub.ID == subID {
				return main.Name, sub.Name
			}
		}
		return main.Name, fmt.Sprintf("Unknown (%s)", subID)
	}
	return fmt.Sprintf("Unknown (%s)", mainID), fmt.Sprintf("Unknown (%s)", subID)
}

// formatKVICategories renders the extractor's selections as the reader-facing
// list appended to the reply.
func formatKVICategories(catalog []KVICategory, selections []KVISelection) string {
	if len(selections) == 0 {
		return "\n\nNo relevant KVI categories identified."
	}

	var b strings.Builder
	b.WriteString("\n\nBased on our conversation, here are the most relevant KVI categories for your service:\n\n")
	for i, sel := range selections {
		mainName, subName := resolveNames(catalog, sel.MainID, sel.SubID)
		fmt.Fprintf(&b, "%d. %s → %s\n", i+1, mainName, subName)
	}
	b.WriteString("\n💡 These categories represent the key value indicators that align with your service.")
	return b.String()
}

// parseKVIExtraction parses the extractor agent's JSON reply, tolerating a
// Markdown code fence around the object.
func parseKVIExtraction(raw string) ([]KVISelection, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var out kviExtraction
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, fmt.Errorf("parsing extractor response: %w", err)
	}
	if out.Categories == nil {
		return nil, fmt.Errorf("extractor response missing categories")
	}
	return out.Categories, nil
}
