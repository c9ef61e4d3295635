package analysis

import "strings"

// Kind is the analysis strategy chosen for an objective.
type Kind string

const (
	Correlation Kind = "correlation"
	Regression  Kind = "regression"
	Descriptive Kind = "descriptive"
	Default     Kind = "default"
)

// Kinds lists every analysis kind in classifier priority order.
var Kinds = []Kind{Correlation, Regression, Descriptive, Default}

func (k Kind) String() string { return string(k) }

// Title returns the display name used in chart and report headings.
func (k Kind) Title() string {
	switch k {
	case Correlation:
		return "Correlation"
	case Regression:
		return "Regression"
	case Descriptive:
		return "Descriptive"
	case Default:
		return "Default"
	}
	return string(k)
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, c := range Kinds {
		if k == c {
			return true
		}
	}
	return false
}

// Selection is the ordered list of numeric columns an analysis uses.
type Selection []string

// String renders the selection comma-joined; empty selections render as "".
func (s Selection) String() string { return strings.Join(s, ", ") }

// rule maps objective keywords to an analysis kind and a column picker.
type rule struct {
	keywords []string
	kind     Kind
	pick     func(numeric []string) []string
}

func allColumns(numeric []string) []string { return numeric }

func firstTwo(numeric []string) []string {
	if len(numeric) >= 2 {
		return numeric[:2]
	}
	return numeric
}

// rules are evaluated in order; the first rule with a matching keyword wins.
var rules = []rule{
	{keywords: []string{"relationship", "correlation"}, kind: Correlation, pick: allColumns},
	{keywords: []string{"impact", "effect"}, kind: Regression, pick: firstTwo},
	{keywords: []string{"distribution", "pattern"}, kind: Descriptive, pick: allColumns},
}

// Classify maps a free-text objective and the table's numeric column names
// (in table order) to an analysis kind and the columns it should use.
func Classify(objective string, numeric []string) (Kind, Selection) {
	text := strings.ToLower(objective)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.kind, clone(r.pick(numeric))
			}
		}
	}
	return Default, clone(numeric)
}

func clone(cols []string) Selection {
	out := make(Selection, len(cols))
	copy(out, cols)
	return out
}
