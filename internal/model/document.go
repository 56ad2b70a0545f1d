package model

// Chunk is a bounded window of a document's normalized text. ChunkID is
// deterministic (doc id + zero-padded sequence), so re-ingesting an identical
// document overwrites its previous chunks instead of duplicating them.
type Chunk struct {
	ChunkID  string `json:"chunk_id"`
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Seq      int    `json:"seq"`
	Start    int    `json:"start"`
	Text     string `json:"text"`
}

type IngestSummary struct {
	DocID     string `json:"doc_id"`
	Filename  string `json:"filename"`
	NumChunks int    `json:"num_chunks"`
}

type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocID      string  `json:"doc_id"`
	Filename   string  `json:"filename"`
	Seq        int     `json:"seq"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

type AnswerMode string

const (
	AnswerModeGenerative AnswerMode = "generative"
	AnswerModeExtractive AnswerMode = "extractive"
)

type Source struct {
	Filename   string  `json:"filename"`
	ChunkID    string  `json:"chunk_id"`
	Similarity float32 `json:"similarity"`
	Excerpt    string  `json:"excerpt"`
}

type AnswerRecord struct {
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
	Sources  []Source   `json:"sources"`
	Mode     AnswerMode `json:"mode"`
}
