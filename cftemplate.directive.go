package cftemplate

import (
	"regexp"
	"strings"
	"unicode"
)

// DirectiveKind identifies what a directive asks for
type DirectiveKind int

// Directive kinds, in classification order
const (
	DirectiveInvalid DirectiveKind = iota
	DirectiveDigest
	DirectivePublication
	DirectiveRequire
	DirectiveIf
	DirectiveUnless
)

// Directive kind names
const (
	DirectiveKindNameInvalid     = "invalid"
	DirectiveKindNameDigest      = "digest"
	DirectiveKindNamePublication = "publication"
	DirectiveKindNameRequire     = "require"
	DirectiveKindNameIf          = "if"
	DirectiveKindNameUnless      = "unless"
)

// String returns the kind name
func (k DirectiveKind) String() string {
	switch k {
	case DirectiveDigest:
		return DirectiveKindNameDigest
	case DirectivePublication:
		return DirectiveKindNamePublication
	case DirectiveRequire:
		return DirectiveKindNameRequire
	case DirectiveIf:
		return DirectiveKindNameIf
	case DirectiveUnless:
		return DirectiveKindNameUnless
	default:
		return DirectiveKindNameInvalid
	}
}

// IsConditional reports whether the kind takes a begin/end block
func (k DirectiveKind) IsConditional() bool {
	return k == DirectiveIf || k == DirectiveUnless
}

// PublicationRef names a published edition of a project
type PublicationRef struct {
	Publisher string
	Project   string
	Edition   string
}

// String renders publisher/project@edition
func (r PublicationRef) String() string {
	return r.Publisher + "/" + r.Project + "@" + r.Edition
}

// Directive is a classified directive. Only the payload field matching
// Kind is set; Text always holds the trimmed directive text.
type Directive struct {
	Kind        DirectiveKind
	Text        string
	Digest      string
	Publication PublicationRef
	Target      string
	Variable    string
}

var (
	digestPattern      = regexp.MustCompile(`^[0-9a-f]{64}$`)
	publicationPattern = regexp.MustCompile(`^([a-z-]+)/([a-z-]+)@([0-9eucd]+)$`)
)

// IsDigest reports whether s is a SHA-256 hex digest
func IsDigest(s string) bool {
	return digestPattern.MatchString(s)
}

type directiveRule func(text string) (Directive, bool)

// directiveRules are evaluated in order; the first match wins. Digest must
// precede publication.
var directiveRules = []directiveRule{
	matchDigest,
	matchPublication,
	matchRequire,
	matchKeyword(KeywordIf, DirectiveIf),
	matchKeyword(KeywordUnless, DirectiveUnless),
}

// Classify determines the kind and payload of directive text.
// It never fails; unrecognized text is DirectiveInvalid.
func Classify(text string) Directive {
	text = strings.TrimSpace(text)
	for _, rule := range directiveRules {
		if d, ok := rule(text); ok {
			d.Text = text
			return d
		}
	}
	return Directive{Kind: DirectiveInvalid, Text: text}
}

func matchDigest(text string) (Directive, bool) {
	if !IsDigest(text) {
		return Directive{}, false
	}
	return Directive{Kind: DirectiveDigest, Digest: text}, true
}

func matchPublication(text string) (Directive, bool) {
	m := publicationPattern.FindStringSubmatch(text)
	if m == nil {
		return Directive{}, false
	}
	return Directive{
		Kind:        DirectivePublication,
		Publication: PublicationRef{Publisher: m[1], Project: m[2], Edition: m[3]},
	}, true
}

func matchRequire(text string) (Directive, bool) {
	rest, ok := cutKeyword(text, KeywordRequire)
	if !ok {
		return Directive{}, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Directive{}, false
	}
	return Directive{Kind: DirectiveRequire, Target: fields[0]}, true
}

func matchKeyword(keyword string, kind DirectiveKind) directiveRule {
	return func(text string) (Directive, bool) {
		rest, ok := cutKeyword(text, keyword)
		if !ok {
			return Directive{}, false
		}
		name := strings.TrimSpace(rest)
		if name == "" {
			return Directive{}, false
		}
		return Directive{Kind: kind, Variable: name}, true
	}
}

// cutKeyword strips keyword plus at least one whitespace character
func cutKeyword(text, keyword string) (string, bool) {
	rest, ok := strings.CutPrefix(text, keyword)
	if !ok || rest == "" {
		return "", false
	}
	if !unicode.IsSpace(rune(rest[0])) {
		return "", false
	}
	return rest, true
}
