package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Required parts of a minimal word-processing package.
const (
	PartContentTypes = "[Content_Types].xml"
	PartRootRels     = "_rels/.rels"
	PartDocument     = "word/document.xml"
	PartDocumentRels = "word/_rels/document.xml.rels"
	PartNumbering    = "word/numbering.xml"
)

// Package is an in-memory OOXML container: named parts in insertion order.
type Package struct {
	names []string
	parts map[string][]byte
}

// NewPackage returns an empty package.
func NewPackage() *Package {
	return &Package{parts: make(map[string][]byte)}
}

// AddPart stores raw part content, replacing any previous content.
func (p *Package) AddPart(name string, content []byte) {
	if _, exists := p.parts[name]; !exists {
		p.names = append(p.names, name)
	}
	p.parts[name] = content
}

// AddXMLPart marshals v with an XML declaration and stores it.
func (p *Package) AddXMLPart(name string, v interface{}) error {
	body, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	p.AddPart(name, append([]byte(xmlDeclaration), body...))
	return nil
}

// Part returns the content of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	content, ok := p.parts[name]
	return content, ok
}

// Names returns part names in insertion order.
func (p *Package) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// WriteTo writes the package as a ZIP archive.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, name := range p.names {
		fw, err := zw.Create(name)
		if err != nil {
			return cw.n, fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return cw.n, fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return cw.n, nil
}

// Bytes serializes the package.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadPackage loads every part of a ZIP container into memory.
func ReadPackage(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	p := NewPackage()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		p.AddPart(f.Name, content)
	}
	return p, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
