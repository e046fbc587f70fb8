package commonModels

import "time"

// SourceDocument is one input to the chunk builder. Name is a file path or
// bare file name; PatientID and DocType override filename inference.
type SourceDocument struct {
	Name        string      `json:"source_file"`
	Text        string      `json:"text"`
	PatientID   string      `json:"patient_id,omitempty"`
	DocType     string      `json:"type,omitempty"`
	Title       string      `json:"title,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
}

// DocumentChunk is the unit that gets embedded and upserted.
type DocumentChunk struct {
	PatientID          string    `json:"patient_id"`
	DocID              string    `json:"doc_id"`
	Type               string    `json:"type"`
	Text               string    `json:"text"`
	ChunkIndex         int       `json:"chunk_index"`
	TotalChunks        int       `json:"total_chunks"`
	TokenCount         int       `json:"token_count"`
	Timestamp          time.Time `json:"timestamp"`
	SourceFile         string    `json:"source_file"`
	IsCompleteDocument bool      `json:"is_complete_document"`
	Title              string    `json:"title,omitempty"`
}

// Metadata is the payload stored next to the vector.
func (c DocumentChunk) Metadata() map[string]any {
	m := map[string]any{
		"patient_id":           c.PatientID,
		"doc_id":               c.DocID,
		"type":                 c.Type,
		"text":                 c.Text,
		"timestamp":            c.Timestamp.Format(time.RFC3339Nano),
		"source_file":          c.SourceFile,
		"chunk_index":          c.ChunkIndex,
		"total_chunks":         c.TotalChunks,
		"token_count":          c.TokenCount,
		"is_complete_document": c.IsCompleteDocument,
	}
	if c.Title != "" {
		m["title"] = c.Title
	}
	return m
}

// FileTokenCount is one row of a folder token analysis.
type FileTokenCount struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
}

type ContentType string

const (
	MARKDOWN ContentType = "MARKDOWN"
	TXT      ContentType = "TXT"
	PDF      ContentType = "PDF"
	DOCX     ContentType = "DOCX"
	ERR      ContentType = "ERROR"
)
