package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
	}
}

func (p PromptSet) Validate() error {
	if p.Classifier == "" {
		return fmt.Errorf("%w: classifier", contractx.ErrPromptMissing)
	}
	return nil
}
