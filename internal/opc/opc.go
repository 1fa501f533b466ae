// Package opc reads and rewrites the multi-part zip archives that back
// Office documents. A Package holds every part in memory; XML parts of
// interest are parsed on demand and serialized back when the package is
// written, so a rewrite always emits all parts, changed or not.
package opc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// ContentTypesPart is the part name of the content-type registry.
const ContentTypesPart = "[Content_Types].xml"

const (
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// Package is an in-memory OPC archive.
type Package struct {
	names []string          // part names in original archive order
	parts map[string][]byte // raw part bytes
	docs  map[string]*etree.Document
}

// New returns an empty package.
func New() *Package {
	return &Package{
		parts: make(map[string][]byte),
		docs:  make(map[string]*etree.Document),
	}
}

// OpenReader reads an entire archive from r.
func OpenReader(r io.Reader) (*Package, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return OpenBytes(buf)
}

// OpenBytes parses an archive held in memory.
func OpenBytes(b []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	p := New()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		p.names = append(p.names, f.Name)
		p.parts[f.Name] = data
	}
	return p, nil
}

// OpenFile reads an archive from disk.
func OpenFile(path string) (*Package, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return OpenBytes(b)
}

// Has reports whether the named part exists.
func (p *Package) Has(name string) bool {
	_, ok := p.parts[name]
	if !ok {
		_, ok = p.docs[name]
	}
	return ok
}

// PartNames returns all part names in archive order.
func (p *Package) PartNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Part returns the raw bytes of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	b, ok := p.parts[name]
	return b, ok
}

// SetPart stores raw bytes under name, appending it to the archive order
// if new. Any parsed XML for the part is discarded.
func (p *Package) SetPart(name string, data []byte) {
	if !p.Has(name) {
		p.names = append(p.names, name)
	}
	p.parts[name] = data
	delete(p.docs, name)
}

// RemovePart drops a part from the package.
func (p *Package) RemovePart(name string) {
	delete(p.parts, name)
	delete(p.docs, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// XML parses the named part as XML and caches the document. Mutations on
// the returned document are serialized back on WriteTo/Save.
func (p *Package) XML(name string) (*etree.Document, error) {
	if doc, ok := p.docs[name]; ok {
		return doc, nil
	}
	raw, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	p.docs[name] = doc
	return doc, nil
}

// NewXML registers a fresh XML part with a standard declaration and
// returns its empty document for the caller to populate.
func (p *Package) NewXML(name string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	if !p.Has(name) {
		p.names = append(p.names, name)
	}
	delete(p.parts, name)
	p.docs[name] = doc
	return doc
}

// SetXML registers an already-built document under name.
func (p *Package) SetXML(name string, doc *etree.Document) {
	if !p.Has(name) {
		p.names = append(p.names, name)
	}
	delete(p.parts, name)
	p.docs[name] = doc
}

// flush serializes every cached XML document back into its raw part.
func (p *Package) flush() error {
	for name, doc := range p.docs {
		b, err := doc.WriteToBytes()
		if err != nil {
			return fmt.Errorf("serialize %s: %w", name, err)
		}
		p.parts[name] = b
	}
	return nil
}

// WriteTo writes the whole archive to w. [Content_Types].xml is always
// written first; the remaining parts keep their original order.
func (p *Package) WriteTo(w io.Writer) error {
	if err := p.flush(); err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	for _, name := range p.writeOrder() {
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := f.Write(p.parts[name]); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

func (p *Package) writeOrder() []string {
	order := make([]string, 0, len(p.names))
	if p.Has(ContentTypesPart) {
		order = append(order, ContentTypesPart)
	}
	for _, n := range p.names {
		if n != ContentTypesPart {
			order = append(order, n)
		}
	}
	return order
}

// Bytes serializes the archive into memory.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the archive to path atomically: the new archive goes to a
// temp file in the same directory, then replaces path via rename.
func (p *Package) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fileforge-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpName := tmp.Name()
	if err := p.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ── relationships ─────────────────────────────────────────────────────────────

// RelsPath returns the relationship part name for a given part
// ("" addresses the package itself).
func RelsPath(partName string) string {
	if partName == "" {
		return "_rels/.rels"
	}
	dir, base := filepath.Split(partName)
	return dir + "_rels/" + base + ".rels"
}

// Rels returns the relationship document for partName, creating an empty
// one if the part has no relationships yet.
func (p *Package) Rels(partName string) (*etree.Document, error) {
	name := RelsPath(partName)
	if p.Has(name) {
		return p.XML(name)
	}
	doc := p.NewXML(name)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsRelationships)
	return doc, nil
}

// NextRelID returns the first unused rId in a relationship document,
// computed as max(existing)+1.
func NextRelID(rels *etree.Document) string {
	max := 0
	for _, rel := range rels.FindElements("//Relationship") {
		id := rel.SelectAttrValue("Id", "")
		if strings.HasPrefix(id, "rId") {
			var n int
			if _, err := fmt.Sscanf(id, "rId%d", &n); err == nil && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("rId%d", max+1)
}

// AddRelationship appends a relationship entry.
func AddRelationship(rels *etree.Document, id, relType, target string) {
	root := rels.Root()
	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)
}

// RemoveRelationship drops the relationship with the given Id, if present.
func RemoveRelationship(rels *etree.Document, id string) {
	root := rels.Root()
	for _, rel := range root.SelectElements("Relationship") {
		if rel.SelectAttrValue("Id", "") == id {
			root.RemoveChild(rel)
			return
		}
	}
}

// RelTarget resolves the target of a relationship by Id, or "".
func RelTarget(rels *etree.Document, id string) string {
	for _, rel := range rels.FindElements("//Relationship") {
		if rel.SelectAttrValue("Id", "") == id {
			return rel.SelectAttrValue("Target", "")
		}
	}
	return ""
}

// RelByType returns (Id, Target) of the first relationship of relType.
func RelByType(rels *etree.Document, relType string) (string, string) {
	for _, rel := range rels.FindElements("//Relationship") {
		if rel.SelectAttrValue("Type", "") == relType {
			return rel.SelectAttrValue("Id", ""), rel.SelectAttrValue("Target", "")
		}
	}
	return "", ""
}

// ResolveTarget resolves a relationship target relative to the part that
// owns the relationships (e.g. "../slideLayouts/x.xml" from a slide).
func ResolveTarget(ownerPart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	base := filepath.Dir(ownerPart)
	return filepath.ToSlash(filepath.Clean(filepath.Join(base, target)))
}

// ── content types ─────────────────────────────────────────────────────────────

func (p *Package) contentTypes() (*etree.Document, error) {
	if p.Has(ContentTypesPart) {
		return p.XML(ContentTypesPart)
	}
	doc := p.NewXML(ContentTypesPart)
	root := doc.CreateElement("Types")
	root.CreateAttr("xmlns", nsContentTypes)
	return doc, nil
}

// HasOverride reports whether partName (with leading slash) is registered.
func (p *Package) HasOverride(partName string) bool {
	doc, err := p.contentTypes()
	if err != nil {
		return false
	}
	for _, o := range doc.FindElements("//Override") {
		if o.SelectAttrValue("PartName", "") == partName {
			return true
		}
	}
	return false
}

// EnsureOverride registers a content-type override if absent.
func (p *Package) EnsureOverride(partName, contentType string) error {
	doc, err := p.contentTypes()
	if err != nil {
		return err
	}
	if p.HasOverride(partName) {
		return nil
	}
	o := doc.Root().CreateElement("Override")
	o.CreateAttr("PartName", partName)
	o.CreateAttr("ContentType", contentType)
	return nil
}

// EnsureDefault registers an extension default if absent.
func (p *Package) EnsureDefault(ext, contentType string) error {
	doc, err := p.contentTypes()
	if err != nil {
		return err
	}
	for _, d := range doc.FindElements("//Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}
	d := doc.Root().CreateElement("Default")
	d.CreateAttr("Extension", ext)
	d.CreateAttr("ContentType", contentType)
	return nil
}

// PartsWithPrefix returns part names under a prefix, sorted.
func (p *Package) PartsWithPrefix(prefix string) []string {
	var out []string
	for _, n := range p.names {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
