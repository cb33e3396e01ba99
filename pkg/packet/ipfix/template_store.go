package ipfix

import (
	"sort"
	"sync"
)

// TemplateKind tells templates and options templates apart
type TemplateKind uint8

const (
	// KindTemplate is a template announced in a template set
	KindTemplate TemplateKind = iota

	// KindOptionsTemplate is a template announced in an options template set
	KindOptionsTemplate
)

func (k TemplateKind) String() string {
	if k == KindOptionsTemplate {
		return "options_template"
	}

	return "template"
}

// Template is a resolved template as kept in a TemplateStore. Fields must not be
// modified once the template has been inserted.
type Template struct {
	Kind            TemplateKind
	ScopeFieldCount uint16
	Fields          []ExpandedFieldSpecifier
}

// ScopeFields returns the scope fields of an options template
func (t Template) ScopeFields() []ExpandedFieldSpecifier {
	n := int(t.ScopeFieldCount)
	if n > len(t.Fields) {
		n = len(t.Fields)
	}

	return t.Fields[:n]
}

// MinRecordLength is the least number of bytes a data record of this template occupies
func (t Template) MinRecordLength() int {
	n := 0
	for _, f := range t.Fields {
		n += f.minDataLength()
	}

	return n
}

// TemplateStore keeps the templates of one IPFIX session keyed by template ID
type TemplateStore interface {
	GetTemplate(templateID uint16) (Template, bool)
	InsertTemplate(templateID uint16, t Template)
	RemoveTemplate(templateID uint16)
}

func expandFieldSpecifiers(fields []FieldSpecifier, r Resolver) []ExpandedFieldSpecifier {
	ret := make([]ExpandedFieldSpecifier, len(fields))
	for i, f := range fields {
		ret[i] = f.Expand(r)
	}

	return ret
}

// InsertTemplateRecords resolves and installs template records. Records without
// fields withdraw their template.
func InsertTemplateRecords(s TemplateStore, records []TemplateRecord, r Resolver) {
	for i := range records {
		if records[i].IsWithdrawal() {
			s.RemoveTemplate(records[i].TemplateID)
			continue
		}

		s.InsertTemplate(records[i].TemplateID, Template{
			Kind:   KindTemplate,
			Fields: expandFieldSpecifiers(records[i].FieldSpecifiers, r),
		})
	}
}

// InsertOptionsTemplateRecords resolves and installs options template records
func InsertOptionsTemplateRecords(s TemplateStore, records []OptionsTemplateRecord, r Resolver) {
	for i := range records {
		if records[i].IsWithdrawal() {
			s.RemoveTemplate(records[i].TemplateID)
			continue
		}

		s.InsertTemplate(records[i].TemplateID, Template{
			Kind:            KindOptionsTemplate,
			ScopeFieldCount: records[i].ScopeFieldCount,
			Fields:          expandFieldSpecifiers(records[i].FieldSpecifiers, r),
		})
	}
}

// ExclusiveTemplateStore is a TemplateStore without synchronization. It must only be
// used by one goroutine at a time.
type ExclusiveTemplateStore struct {
	templates map[uint16]Template
}

// NewExclusiveTemplateStore creates an empty ExclusiveTemplateStore
func NewExclusiveTemplateStore() *ExclusiveTemplateStore {
	return &ExclusiveTemplateStore{
		templates: make(map[uint16]Template),
	}
}

// GetTemplate gets a template
func (s *ExclusiveTemplateStore) GetTemplate(templateID uint16) (Template, bool) {
	t, ok := s.templates[templateID]
	return t, ok
}

// InsertTemplate inserts or replaces a template
func (s *ExclusiveTemplateStore) InsertTemplate(templateID uint16, t Template) {
	s.templates[templateID] = t
}

// RemoveTemplate removes a template
func (s *ExclusiveTemplateStore) RemoveTemplate(templateID uint16) {
	delete(s.templates, templateID)
}

// Len returns the number of templates
func (s *ExclusiveTemplateStore) Len() int {
	return len(s.templates)
}

// TemplateIDs returns the IDs of all templates in ascending order
func (s *ExclusiveTemplateStore) TemplateIDs() []uint16 {
	return sortedIDs(s.templates)
}

// SharedTemplateStore is a TemplateStore guarded by a read/write lock. It can be
// shared by decoders and encoders running concurrently.
type SharedTemplateStore struct {
	templates   map[uint16]Template
	templatesMu sync.RWMutex
}

// NewSharedTemplateStore creates an empty SharedTemplateStore
func NewSharedTemplateStore() *SharedTemplateStore {
	return &SharedTemplateStore{
		templates: make(map[uint16]Template),
	}
}

// GetTemplate gets a template
func (s *SharedTemplateStore) GetTemplate(templateID uint16) (Template, bool) {
	s.templatesMu.RLock()
	defer s.templatesMu.RUnlock()

	t, ok := s.templates[templateID]
	return t, ok
}

// InsertTemplate inserts or replaces a template
func (s *SharedTemplateStore) InsertTemplate(templateID uint16, t Template) {
	s.templatesMu.Lock()
	defer s.templatesMu.Unlock()

	s.templates[templateID] = t
}

// RemoveTemplate removes a template
func (s *SharedTemplateStore) RemoveTemplate(templateID uint16) {
	s.templatesMu.Lock()
	defer s.templatesMu.Unlock()

	delete(s.templates, templateID)
}

// Len returns the number of templates
func (s *SharedTemplateStore) Len() int {
	s.templatesMu.RLock()
	defer s.templatesMu.RUnlock()

	return len(s.templates)
}

// TemplateIDs returns the IDs of all templates in ascending order
func (s *SharedTemplateStore) TemplateIDs() []uint16 {
	s.templatesMu.RLock()
	defer s.templatesMu.RUnlock()

	return sortedIDs(s.templates)
}

func sortedIDs(m map[uint16]Template) []uint16 {
	ret := make([]uint16, 0, len(m))
	for id := range m {
		ret = append(ret, id)
	}

	sort.Slice(ret, func(i, j int) bool {
		return ret[i] < ret[j]
	})

	return ret
}
