// Package cv holds the controlled vocabulary (CV) term registry used to
// interpret cvParam elements of mzML files, and the per-file translation of
// the CV labels a document declares to the labels known by the registry.
package cv

import (
	"strings"
)

// Term is an immutable CV term. The zero value is the unknown term.
type Term struct {
	ID       string // namespace:accession, e.g. MS:1000514
	Name     string
	Obsolete bool
}

// Unknown is returned for accessions that the registry can't resolve.
// Files that use newer or vendor-private vocabulary must still parse,
// so this is never an error.
var Unknown = Term{}

// Known reports whether t was resolved by a registry
func (t Term) Known() bool {
	return t.ID != ""
}

// Namespace returns the canonical CV label part of the term id
func (t Term) Namespace() string {
	ns, _, _ := strings.Cut(t.ID, ":")
	return ns
}

func (t Term) String() string {
	if !t.Known() {
		return "unknown term"
	}
	return t.ID + " " + t.Name
}

// Vocabulary describes an ontology known to the registry. URIs lists the
// source locations under which the ontology is published; only the file
// name part is used to match the declarations in a document.
type Vocabulary struct {
	Label    string
	FullName string
	URIs     []string
}

// Definition is one row of a static term table.
type Definition struct {
	ID       string
	Name     string
	Obsolete bool
	IsA      []string
}

// Registry is a read-only term table with a precomputed is_a closure.
// A Registry is safe for concurrent use.
type Registry struct {
	vocabs    []Vocabulary
	terms     map[string]Term
	accession map[string]map[string]string // namespace -> accession -> id
	ancestors map[string]map[string]struct{}
}

// NewRegistry builds a registry from a term table. Parents that are not
// defined in the table are kept in the relation, so a partial table still
// classifies correctly.
func NewRegistry(vocabs []Vocabulary, defs []Definition) *Registry {
	r := &Registry{
		vocabs:    append([]Vocabulary(nil), vocabs...),
		terms:     make(map[string]Term, len(defs)),
		accession: make(map[string]map[string]string),
		ancestors: make(map[string]map[string]struct{}, len(defs)),
	}
	parents := make(map[string][]string, len(defs))
	for _, d := range defs {
		r.terms[d.ID] = Term{ID: d.ID, Name: d.Name, Obsolete: d.Obsolete}
		ns, acc, ok := strings.Cut(d.ID, ":")
		if !ok {
			continue
		}
		if r.accession[ns] == nil {
			r.accession[ns] = make(map[string]string)
		}
		r.accession[ns][acc] = d.ID
		parents[d.ID] = append(parents[d.ID], d.IsA...)
	}
	for id := range parents {
		r.closure(id, parents, map[string]bool{})
	}
	return r
}

// closure fills the ancestor set of id. visiting guards against cycles in
// broken tables.
func (r *Registry) closure(id string, parents map[string][]string,
	visiting map[string]bool) map[string]struct{} {
	if a, ok := r.ancestors[id]; ok {
		return a
	}
	a := make(map[string]struct{})
	if visiting[id] {
		return a
	}
	visiting[id] = true
	for _, p := range parents[id] {
		a[p] = struct{}{}
		for q := range r.closure(p, parents, visiting) {
			a[q] = struct{}{}
		}
	}
	delete(visiting, id)
	r.ancestors[id] = a
	return a
}

// Vocabularies returns the ontologies known to the registry
func (r *Registry) Vocabularies() []Vocabulary {
	return r.vocabs
}

// Lookup resolves an accession within a canonical namespace. The accession
// may be given with or without its namespace prefix.
func (r *Registry) Lookup(namespace, accession string) Term {
	if _, local, ok := strings.Cut(accession, ":"); ok {
		accession = local
	}
	id, ok := r.accession[namespace][accession]
	if !ok {
		return Unknown
	}
	return r.terms[id]
}

// Term returns the term with the given canonical id
func (r *Registry) Term(id string) Term {
	if t, ok := r.terms[id]; ok {
		return t
	}
	return Unknown
}

// IsDescendantOf reports whether term is a (transitive) child of ancestor.
// A term is not its own descendant.
func (r *Registry) IsDescendantOf(term, ancestor Term) bool {
	if !term.Known() || !ancestor.Known() {
		return false
	}
	_, ok := r.ancestors[term.ID][ancestor.ID]
	return ok
}

// IsA reports whether term is the term with id ancestorID or one of its
// descendants.
func (r *Registry) IsA(term Term, ancestorID string) bool {
	if !term.Known() {
		return false
	}
	if term.ID == ancestorID {
		return true
	}
	_, ok := r.ancestors[term.ID][ancestorID]
	return ok
}
