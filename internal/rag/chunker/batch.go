package chunker

import (
	"fmt"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
)

type DocumentResult struct {
	Source string
	Chunks []commonModels.DocumentChunk
}

type Failure struct {
	Source string
	Err    error
}

type BatchResult struct {
	Documents []DocumentResult
	Failed    []Failure
}

// Chunks flattens the per-document results in input order.
func (r BatchResult) Chunks() []commonModels.DocumentChunk {
	var all []commonModels.DocumentChunk
	for _, d := range r.Documents {
		all = append(all, d.Chunks...)
	}
	return all
}

// BuildAll builds each document independently. A failing document is
// recorded and skipped. A document whose doc ids collide with an earlier
// document is rejected so ids stay unique across the batch.
func (b *Builder) BuildAll(docs []commonModels.SourceDocument) BatchResult {
	var result BatchResult
	owner := make(map[string]string)

	for i, doc := range docs {
		source := SourceLabel(doc, i)
		chunks, err := b.Build(doc)
		if err == nil {
			for _, c := range chunks {
				if prev, taken := owner[c.DocID]; taken {
					err = fmt.Errorf("%s collides with %s: %w", c.DocID, prev, ErrDuplicateDocID)
					break
				}
			}
		}
		if err != nil {
			b.logger.Error("Skipping document", "source", source, "error", err)
			result.Failed = append(result.Failed, Failure{Source: source, Err: err})
			continue
		}

		for _, c := range chunks {
			owner[c.DocID] = source
		}
		result.Documents = append(result.Documents, DocumentResult{Source: source, Chunks: chunks})
	}
	return result
}

func SourceLabel(doc commonModels.SourceDocument, position int) string {
	if doc.Name != "" {
		return doc.Name
	}
	return fmt.Sprintf("document[%d]", position)
}
