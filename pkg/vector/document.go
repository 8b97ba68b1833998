package vector

import "encoding/json"

// Document is a unit of business content as collaborators see it: the text
// plus its metadata and, on retrieval, the relevance score.
type Document struct {
	Content  string
	Metadata Metadata
	Score    float64
}

type documentJSON struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// MarshalJSON encodes the document as {content, metadata} with the score
// carried inside metadata.
func (d Document) MarshalJSON() ([]byte, error) {
	md := d.Metadata.Map()
	md["score"] = d.Score
	return json.Marshal(documentJSON{Content: d.Content, Metadata: md})
}

// UnmarshalJSON decodes a document. Top-level content wins over
// metadata.content and a score inside metadata is lifted into Score.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content  string          `json:"content"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var md Metadata
	if len(raw.Metadata) > 0 {
		if err := json.Unmarshal(raw.Metadata, &md); err != nil {
			return err
		}
	}

	var score float64
	if v, ok := md.Extra["score"].(float64); ok {
		score = v
		delete(md.Extra, "score")
		if len(md.Extra) == 0 {
			md.Extra = nil
		}
	}

	content := raw.Content
	if content == "" {
		content = md.Content
	}
	md.Content = content

	*d = Document{Content: content, Metadata: md, Score: score}
	return nil
}

// DocumentFromMatch builds a Document from a query match.
func DocumentFromMatch(m Match) Document {
	return Document{Content: m.Metadata.Content, Metadata: m.Metadata, Score: m.Score}
}
