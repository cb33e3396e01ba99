package ie

import (
	"io"
	"os"
	"strings"

	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ReversePEN is the private enterprise number of RFC 5103 reverse information elements
const ReversePEN = 29305

// Element describes an information element
type Element struct {
	Name             string               `yaml:"name"`
	EnterpriseNumber uint32               `yaml:"enterprise_number"`
	ID               uint16               `yaml:"id"`
	Type             ipfix.DataRecordType `yaml:"type"`
}

type key struct {
	enterpriseNumber uint32
	id               uint16
}

// Registry maps (enterprise number, element ID) onto elements. It implements
// ipfix.Resolver. Adding elements is not safe while the registry is in use.
type Registry struct {
	byKey  map[key]Element
	byName map[string]Element
}

// New creates a registry holding the builtin IANA elements and their RFC 5103 reverse counterparts
func New() *Registry {
	r := &Registry{
		byKey:  make(map[key]Element, 2*len(ianaElements)),
		byName: make(map[string]Element, 2*len(ianaElements)),
	}

	for _, e := range ianaElements {
		r.Add(e)
		if reversible(e.ID) {
			r.Add(reverse(e))
		}
	}

	return r
}

// Add adds or replaces an element
func (r *Registry) Add(e Element) {
	k := key{
		enterpriseNumber: e.EnterpriseNumber,
		id:               e.ID,
	}

	if old, ok := r.byKey[k]; ok {
		delete(r.byName, old.Name)
	}

	r.byKey[k] = e
	r.byName[e.Name] = e
}

// Resolve implements ipfix.Resolver
func (r *Registry) Resolve(enterpriseNumber uint32, elementID uint16) (string, ipfix.DataRecordType, bool) {
	e, ok := r.byKey[key{
		enterpriseNumber: enterpriseNumber,
		id:               elementID,
	}]
	if !ok {
		return "", 0, false
	}

	return e.Name, e.Type, true
}

// ByName looks up an element by name
func (r *Registry) ByName(name string) (Element, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Len returns the number of known elements
func (r *Registry) Len() int {
	return len(r.byKey)
}

// FieldSpecifier creates a field specifier for the named element
func (r *Registry) FieldSpecifier(name string, length uint16) (ipfix.FieldSpecifier, error) {
	e, ok := r.byName[name]
	if !ok {
		return ipfix.FieldSpecifier{}, errors.Errorf("unknown information element %q", name)
	}

	if e.EnterpriseNumber != 0 {
		return ipfix.NewEnterpriseFieldSpecifier(e.EnterpriseNumber, e.ID, length), nil
	}

	return ipfix.NewFieldSpecifier(e.ID, length), nil
}

type definitionFile struct {
	Elements []Element `yaml:"elements"`
}

// Load adds the elements of a YAML definition
func (r *Registry) Load(in io.Reader) error {
	b, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "Unable to read definitions")
	}

	defs := definitionFile{}
	err = yaml.UnmarshalStrict(b, &defs)
	if err != nil {
		return errors.Wrap(err, "Unable to unmarshal definitions")
	}

	for i, e := range defs.Elements {
		if e.Name == "" {
			return errors.Errorf("element #%d has no name", i)
		}

		if e.ID >= 0x8000 {
			return errors.Errorf("element %s: ID %d exceeds 15 bits", e.Name, e.ID)
		}

		r.Add(e)
	}

	return nil
}

// LoadFile adds the elements of a YAML definition file
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "Unable to open file")
	}
	defer f.Close()

	return errors.Wrapf(r.Load(f), "Unable to load %q", path)
}

func reversible(id uint16) bool {
	switch id {
	// flowId, templateId, observationDomainId, commonPropertiesId
	case 148, 145, 149, 137:
		return false
	// process configuration (RFC 5102 section 5.2)
	case 130, 131, 217, 211, 212, 213, 214, 215, 216, 173:
		return false
	// process statistics (RFC 5102 section 5.3)
	case 41, 40, 42, 163, 164, 165, 166, 167, 168:
		return false
	// paddingOctets
	case 210:
		return false
	}

	return true
}

func reverse(e Element) Element {
	return Element{
		Name:             "reverse" + strings.ToUpper(e.Name[0:1]) + e.Name[1:],
		EnterpriseNumber: ReversePEN,
		ID:               e.ID,
		Type:             e.Type,
	}
}
