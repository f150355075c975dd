package document

import (
	"github.com/google/uuid"
)

// Bundle is the unit of work carried through the pipeline. Stages never
// mutate a bundle; they return a new one.
type Bundle struct {
	ID         string `json:"id"`
	Format     Format `json:"format"`
	FileName   string `json:"file_name,omitempty"`
	HTML       string `json:"html"`
	StyleSheet string `json:"styles"`
}

// NewBundle creates a bundle with a fresh ID.
func NewBundle(format Format, fileName, html, styles string) *Bundle {
	return &Bundle{
		ID:         uuid.NewString(),
		Format:     format,
		FileName:   fileName,
		HTML:       html,
		StyleSheet: styles,
	}
}

// WithHTML returns a copy of the bundle carrying new content.
func (b *Bundle) WithHTML(html string) *Bundle {
	next := *b
	next.HTML = html
	return &next
}

// Extraction is the output of an importer.
type Extraction struct {
	HTML   string
	Styles string
}
