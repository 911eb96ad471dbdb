package graph

import "fmt"

// Document is the root of one source file's subgraph. Its ID is a content
// hash of the source path, stable across runs.
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// NewDocument creates the document record for a source path.
func NewDocument(source string) Document {
	return Document{
		ID:     ContentID(source),
		Source: source,
	}
}

// Chunk is a bounded contiguous slice of a document used as the unit of
// extraction and retrieval. Sequence numbering is unique per document
// within one ingestion pass.
type Chunk struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Sequence   int    `json:"sequence"`
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// NewChunk creates the chunk record at the given sequence position. The
// chunk ID is derived from the sequence and the owning document so that
// re-ingesting the same document yields the same IDs.
func NewChunk(doc Document, sequence int, text string) Chunk {
	name := fmt.Sprintf("DocumentChunk%d", sequence)
	return Chunk{
		ID:         ContentID(name + doc.ID),
		Name:       name,
		Sequence:   sequence,
		DocumentID: doc.ID,
		Text:       text,
	}
}

// TripletRow is one raw extraction unit as returned by the model for a
// single chunk. It is consumed immediately by deduplication.
type TripletRow struct {
	Head     string `json:"head" jsonschema_description:"Entity surface form exactly as it appears in the text"`
	HeadType string `json:"head_type" jsonschema_description:"One of the allowed entity types"`
	Relation string `json:"relation" jsonschema_description:"Relation between head and tail, preferably one of the allowed relation types"`
	Tail     string `json:"tail" jsonschema_description:"Entity surface form exactly as it appears in the text"`
	TailType string `json:"tail_type" jsonschema_description:"One of the allowed entity types"`
}

// String renders the row in (head, relation, tail) form. Used for
// deterministic ordering and for logging.
func (t TripletRow) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Head, t.Relation, t.Tail)
}

// ChunkTriplets maps each chunk to the triplet rows extracted from it.
// Every chunk of the document is present; whether triplet-less chunks
// reach the graph is decided when the mutation script is built.
type ChunkTriplets map[Chunk][]TripletRow

// Entity is a canonical, deduplicated graph node. Name is the canonical
// graph-safe identifier, Text the original surface form, and MentionedIn
// records every chunk that referenced the entity, keyed by chunk ID.
type Entity struct {
	Name        string
	Type        string
	ID          string
	Text        string
	MentionedIn map[string]Chunk
}
