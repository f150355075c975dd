package document

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ImportText turns a plain-text upload into paragraph HTML. Blank lines
// separate paragraphs and single newlines become <br>.
func ImportText(data []byte) (*Extraction, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, newExtractionError("failed to decode text", err)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var sb strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(line)
		}
		sb.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>")
	}
	return &Extraction{HTML: sb.String()}, nil
}

// DecodeText converts uploaded bytes to a UTF-8 string. BOMs are honoured;
// input that is not valid UTF-8 is read as Windows-1252.
func DecodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	// UTF-8 BOM
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:]), nil
	}

	if len(data) >= 2 {
		switch {
		case data[0] == 0xFF && data[1] == 0xFE:
			return decodeWith(data[2:], xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder())
		case data[0] == 0xFE && data[1] == 0xFF:
			return decodeWith(data[2:], xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM).NewDecoder())
		}
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	return decodeWith(data, charmap.Windows1252.NewDecoder())
}

func decodeWith(data []byte, t transform.Transformer) (string, error) {
	res, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), t))
	if err != nil {
		return "", err
	}
	return string(res), nil
}
