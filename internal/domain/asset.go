package domain

import "fmt"

// GeneratedAsset is a durably stored result. It is created once per persisted
// variant and never mutated.
type GeneratedAsset struct {
	PublicURL    string `json:"url"`
	StorageID    string `json:"storage_id"`
	Variant      string `json:"variant"`
	VariantIndex int    `json:"-"`
	SourceTaskID string `json:"task_id"`
	SourceURL    string `json:"-"`
}

// VariantLabel returns the human label for a zero-based variant index.
func VariantLabel(index int) string {
	return fmt.Sprintf("Style %d", index+1)
}

// VariantFailure records a variant that could not be persisted.
type VariantFailure struct {
	VariantIndex int    `json:"variant"`
	SourceURL    string `json:"-"`
	Err          error  `json:"-"`
}
