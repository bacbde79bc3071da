package cftemplate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Form is a Common Form document: a sequence of content elements, some of
// which are child forms.
type Form struct {
	Conspicuous string    `json:"conspicuous,omitempty"`
	Content     []Element `json:"content"`
}

// Child is a nested form with an optional heading
type Child struct {
	Form    *Form  `json:"form"`
	Heading string `json:"heading,omitempty"`
}

// ElementType identifies the kind of a content element
type ElementType int

// Element types
const (
	ElementText ElementType = iota
	ElementUse
	ElementDefinition
	ElementReference
	ElementBlank
	ElementChild
)

// Element JSON keys
const (
	elementKeyUse        = "use"
	elementKeyDefinition = "definition"
	elementKeyReference  = "reference"
	elementKeyBlank      = "blank"
	elementKeyForm       = "form"
	elementKeyHeading    = "heading"
)

// Element is one content element. Value holds the text, term, heading or
// blank label; Child is set only for ElementChild.
type Element struct {
	Type  ElementType
	Value string
	Child *Child
}

// Text creates a text element
func Text(s string) Element { return Element{Type: ElementText, Value: s} }

// Use creates a use-of-defined-term element
func Use(term string) Element { return Element{Type: ElementUse, Value: term} }

// Definition creates a term definition element
func Definition(term string) Element { return Element{Type: ElementDefinition, Value: term} }

// Reference creates a heading reference element
func Reference(heading string) Element { return Element{Type: ElementReference, Value: heading} }

// Blank creates a fill-in blank element
func Blank(label string) Element { return Element{Type: ElementBlank, Value: label} }

// NewChild creates a child form element
func NewChild(heading string, form *Form) Element {
	return Element{Type: ElementChild, Child: &Child{Heading: heading, Form: form}}
}

// IsInline reports whether the element is part of a paragraph
func (e Element) IsInline() bool {
	return e.Type != ElementChild
}

// MarshalJSON encodes text as a JSON string and everything else as an object
func (e Element) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case ElementText:
		return marshalUnescaped(e.Value)
	case ElementUse:
		return marshalUnescaped(map[string]string{elementKeyUse: e.Value})
	case ElementDefinition:
		return marshalUnescaped(map[string]string{elementKeyDefinition: e.Value})
	case ElementReference:
		return marshalUnescaped(map[string]string{elementKeyReference: e.Value})
	case ElementBlank:
		return marshalUnescaped(map[string]string{elementKeyBlank: e.Value})
	case ElementChild:
		if e.Child == nil || e.Child.Form == nil {
			return nil, NewInvalidElementError(elementKeyForm)
		}
		return marshalUnescaped(e.Child)
	default:
		return nil, NewInvalidElementError(fmt.Sprint(int(e.Type)))
	}
}

// UnmarshalJSON decodes the Common Form native element shapes
func (e *Element) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Text(s)
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	if raw, ok := obj[elementKeyForm]; ok {
		child := &Child{}
		if err := json.Unmarshal(raw, &child.Form); err != nil {
			return err
		}
		if child.Form == nil {
			return NewInvalidElementError(elementKeyForm)
		}
		if rawHeading, ok := obj[elementKeyHeading]; ok {
			if err := json.Unmarshal(rawHeading, &child.Heading); err != nil {
				return err
			}
		}
		*e = Element{Type: ElementChild, Child: child}
		return nil
	}

	if len(obj) != 1 {
		return NewInvalidElementError(string(data))
	}
	for key, raw := range obj {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return NewInvalidElementError(key)
		}
		switch key {
		case elementKeyUse:
			*e = Use(value)
		case elementKeyDefinition:
			*e = Definition(value)
		case elementKeyReference:
			*e = Reference(value)
		case elementKeyBlank:
			*e = Blank(value)
		default:
			return NewInvalidElementError(key)
		}
	}
	return nil
}

// ParseFormJSON decodes a form in Common Form native JSON
func ParseFormJSON(data []byte) (*Form, error) {
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, NewFormJSONError(err)
	}
	if err := form.validate(); err != nil {
		return nil, NewFormJSONError(err)
	}
	return &form, nil
}

func (f *Form) validate() error {
	if f.Conspicuous != "" && f.Conspicuous != ConspicuousYes {
		return NewInvalidElementError(ErrMsgInvalidConspicuous)
	}
	for _, el := range f.Content {
		if el.Type == ElementChild {
			if err := el.Child.Form.validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// CanonicalJSON encodes the form with sorted keys and without HTML escaping
func (f *Form) CanonicalJSON() ([]byte, error) {
	return marshalUnescaped(f)
}

// marshalUnescaped is json.Marshal without the <, > and & escapes
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Digest returns the SHA-256 hex digest of the canonical JSON encoding
func (f *Form) Digest() (string, error) {
	data, err := f.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// appendInline appends inline elements, merging adjacent text and joining
// separate paragraphs of the same form with a space
func (f *Form) appendInline(elements []Element) {
	if len(elements) == 0 {
		return
	}
	if n := len(f.Content); n > 0 && f.Content[n-1].IsInline() {
		f.appendText(" ")
	}
	for _, el := range elements {
		if el.Type == ElementText {
			f.appendText(el.Value)
			continue
		}
		f.Content = append(f.Content, el)
	}
}

func (f *Form) appendText(s string) {
	if n := len(f.Content); n > 0 && f.Content[n-1].Type == ElementText {
		f.Content[n-1].Value += s
		return
	}
	f.Content = append(f.Content, Text(s))
}
