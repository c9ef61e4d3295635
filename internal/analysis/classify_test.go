package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	numeric := []string{"age", "income", "score"}
	tests := []struct {
		name      string
		objective string
		numeric   []string
		wantKind  Kind
		wantCols  Selection
	}{
		{"relationship", "Is there a relationship between age and income?", numeric, Correlation, Selection{"age", "income", "score"}},
		{"correlation upper case", "CORRELATION study", numeric, Correlation, Selection{"age", "income", "score"}},
		{"impact picks first two", "What is the impact of age?", numeric, Regression, Selection{"age", "income"}},
		{"effect", "side EFFECTS of income", numeric, Regression, Selection{"age", "income"}},
		{"impact with one column", "impact", []string{"age"}, Regression, Selection{"age"}},
		{"impact with no columns", "impact", nil, Regression, Selection{}},
		{"distribution", "Show the distribution", numeric, Descriptive, Selection{"age", "income", "score"}},
		{"pattern", "any Patterns?", numeric, Descriptive, Selection{"age", "income", "score"}},
		{"fallback", "summarize this dataset", numeric, Default, Selection{"age", "income", "score"}},
		{"empty objective", "", numeric, Default, Selection{"age", "income", "score"}},
		{"correlation beats impact", "impact and correlation", numeric, Correlation, Selection{"age", "income", "score"}},
		{"impact beats distribution", "distribution of the effect", numeric, Regression, Selection{"age", "income"}},
		{"correlation with no numeric columns", "correlation", nil, Correlation, Selection{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, cols := Classify(tt.objective, tt.numeric)
			if kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", kind, tt.wantKind)
			}
			if diff := cmp.Diff(tt.wantCols, cols); diff != "" {
				t.Fatalf("columns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassifyDoesNotAliasInput(t *testing.T) {
	numeric := []string{"a", "b", "c"}
	_, cols := Classify("impact", numeric)
	cols[0] = "mutated"
	if numeric[0] != "a" {
		t.Fatalf("classifier result aliases caller slice")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	numeric := []string{"x", "y"}
	for _, obj := range []string{"relationship", "impact", "pattern", "other"} {
		k1, c1 := Classify(obj, numeric)
		k2, c2 := Classify(obj, numeric)
		if k1 != k2 || !cmp.Equal(c1, c2) {
			t.Fatalf("Classify(%q) not deterministic", obj)
		}
	}
}

func TestSelectionString(t *testing.T) {
	if got := (Selection{"age", "income"}).String(); got != "age, income" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Selection{}).String(); got != "" {
		t.Fatalf("empty String() = %q", got)
	}
}
