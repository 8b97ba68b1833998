package vector

import (
	"encoding/json"
	"fmt"
	"maps"
)

// DocType is the closed set of document categories a vector can describe.
type DocType string

const (
	TypeBasicInfo      DocType = "basic_info"
	TypeContactInfo    DocType = "contact_info"
	TypeService        DocType = "service"
	TypeFAQ            DocType = "faq"
	TypePromotion      DocType = "promotion"
	TypeBusinessHours  DocType = "business_hours"
	TypePaymentMethods DocType = "payment_methods"
	TypeCustomResponse DocType = "custom_response"
)

// DocTypes lists every valid DocType.
var DocTypes = []DocType{
	TypeBasicInfo,
	TypeContactInfo,
	TypeService,
	TypeFAQ,
	TypePromotion,
	TypeBusinessHours,
	TypePaymentMethods,
	TypeCustomResponse,
}

// Valid reports whether t is one of the known document types.
func (t DocType) Valid() bool {
	for _, known := range DocTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RefKey returns the metadata key holding the type-specific identifier, or
// the empty string for types that carry none.
func (t DocType) RefKey() string {
	switch t {
	case TypeService:
		return KeyServiceID
	case TypeFAQ:
		return KeyFAQID
	case TypePromotion:
		return KeyPromoID
	case TypeCustomResponse:
		return KeyResponseID
	default:
		return ""
	}
}

// Reserved metadata keys as they appear on disk and in filters.
const (
	KeyNamespaceID = "namespaceId"
	KeyType        = "type"
	KeySource      = "source"
	KeyContent     = "content"
	KeyServiceID   = "serviceId"
	KeyFAQID       = "faqId"
	KeyPromoID     = "promoId"
	KeyResponseID  = "responseId"
)

// Metadata describes where a vector came from.
//
// The reserved fields are always present. Ref holds the identifier that is
// legal for Type (serviceId for services, faqId for FAQs and so on) and Extra
// holds free-form attributes. On the wire Metadata is a single flat JSON
// object so persisted namespace files keep their original shape.
type Metadata struct {
	NamespaceID string
	Type        DocType
	Source      string
	Content     string
	Ref         string
	Extra       map[string]any
}

// Get returns the value stored under a flat metadata key.
func (m Metadata) Get(key string) (any, bool) {
	switch key {
	case KeyNamespaceID:
		return m.NamespaceID, true
	case KeyType:
		return string(m.Type), true
	case KeySource:
		return m.Source, true
	case KeyContent:
		return m.Content, true
	}

	if refKey := m.Type.RefKey(); refKey != "" && key == refKey && m.Ref != "" {
		return m.Ref, true
	}

	v, ok := m.Extra[key]
	return v, ok
}

// Clone returns a copy of m that shares no maps with the original.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = maps.Clone(m.Extra)
	}
	return out
}

// Summary returns the reduced metadata returned when a query does not ask
// for full metadata.
func (m Metadata) Summary() Metadata {
	return Metadata{
		NamespaceID: m.NamespaceID,
		Type:        m.Type,
		Source:      m.Source,
	}
}

// Map flattens the metadata into a single map.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}

	out[KeyNamespaceID] = m.NamespaceID
	out[KeyType] = string(m.Type)
	out[KeySource] = m.Source
	out[KeyContent] = m.Content

	if refKey := m.Type.RefKey(); refKey != "" && m.Ref != "" {
		out[refKey] = m.Ref
	}

	return out
}

// MarshalJSON encodes the metadata as a flat object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// UnmarshalJSON decodes a flat metadata object. Identifier keys that are not
// legal for the decoded type are kept in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Metadata
	var err error
	if out.NamespaceID, err = takeString(raw, KeyNamespaceID); err != nil {
		return err
	}
	var docType string
	if docType, err = takeString(raw, KeyType); err != nil {
		return err
	}
	out.Type = DocType(docType)
	if out.Source, err = takeString(raw, KeySource); err != nil {
		return err
	}
	if out.Content, err = takeString(raw, KeyContent); err != nil {
		return err
	}

	if refKey := out.Type.RefKey(); refKey != "" {
		if ref, ok := raw[refKey].(string); ok {
			out.Ref = ref
			delete(raw, refKey)
		}
	}

	if len(raw) > 0 {
		out.Extra = raw
	}

	*m = out
	return nil
}

func takeString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		delete(raw, key)
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("metadata key %q: expected string, got %T", key, v)
	}

	delete(raw, key)
	return s, nil
}
