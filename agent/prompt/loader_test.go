package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, kind := range []string{"lookup", "update_customer", "history", "reporting", "billing", "cancellation", "account_help"} {
		if !strings.Contains(set.Classifier, kind) {
			t.Fatalf("classifier prompt does not mention %q", kind)
		}
	}
}
