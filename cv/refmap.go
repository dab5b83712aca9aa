package cv

import (
	"strings"
)

// Declaration is a <cv> entry of a document's cvList
type Declaration struct {
	ID       string
	FullName string
	Version  string
	URI      string
}

// RefMap translates the CV labels used in one document to the canonical
// labels of a registry, and back. It is built once per document and is
// read-only afterwards.
type RefMap struct {
	toCanonical   map[string]string
	fromCanonical map[string]string
}

// NewRefMap matches the declared CVs of a document against the registry
// vocabularies by the file name of their source URI (case insensitive).
// A match between a PEFF label and a non-PEFF label is rejected: PEFF is
// published next to PSI-MS and would otherwise capture the MS namespace.
// Registry vocabularies without a matching declaration keep their own
// label.
func NewRefMap(reg *Registry, decls []Declaration) *RefMap {
	m := &RefMap{
		toCanonical:   make(map[string]string),
		fromCanonical: make(map[string]string),
	}
	var unmatched []string
	for _, v := range reg.Vocabularies() {
		d, ok := matchDeclaration(v, decls)
		if !ok {
			unmatched = append(unmatched, v.Label)
			continue
		}
		if _, taken := m.toCanonical[d.ID]; !taken {
			m.toCanonical[d.ID] = v.Label
		}
		m.fromCanonical[v.Label] = d.ID
	}
	for _, label := range unmatched {
		if _, taken := m.toCanonical[label]; !taken {
			m.toCanonical[label] = label
		}
		m.fromCanonical[label] = label
	}
	return m
}

func matchDeclaration(v Vocabulary, decls []Declaration) (Declaration, bool) {
	for _, d := range decls {
		if isPEFF(v.Label) != isPEFF(d.ID) {
			continue
		}
		name := uriFileName(d.URI)
		if name == "" {
			continue
		}
		for _, u := range v.URIs {
			if strings.EqualFold(uriFileName(u), name) {
				return d, true
			}
		}
	}
	return Declaration{}, false
}

func isPEFF(label string) bool {
	return strings.EqualFold(label, "PEFF")
}

func uriFileName(uri string) string {
	uri = strings.TrimSpace(uri)
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndexAny(uri, `/\`); i >= 0 {
		uri = uri[i+1:]
	}
	return uri
}

// ToCanonical returns the registry label for a document label, or "" if
// the label is not recognized.
func (m *RefMap) ToCanonical(label string) string {
	return m.toCanonical[label]
}

// FromCanonical returns the document label for a registry label, or "".
func (m *RefMap) FromCanonical(label string) string {
	return m.fromCanonical[label]
}

// Resolve looks up a cvParam term given its cvRef attribute and accession.
// When cvRef is absent the namespace prefix of the accession is used.
func (m *RefMap) Resolve(reg *Registry, cvRef, accession string) Term {
	label := cvRef
	if label == "" {
		label, _, _ = strings.Cut(accession, ":")
	}
	ns := m.ToCanonical(label)
	if ns == "" {
		return Unknown
	}
	return reg.Lookup(ns, accession)
}
