package routernode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
)

// Classify records classifier failures on the state instead of failing the
// graph so the trace can still be produced.
func Classify(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	intents, err := classifier.Classify(ctx, in.Query)
	if err != nil {
		in.ClassifyErr = err
		return in, nil
	}

	valid := make([]contractx.Intent, 0, len(intents))
	for _, it := range intents {
		if it.Kind.Valid() {
			valid = append(valid, it)
		}
	}
	if len(valid) == 0 {
		in.ClassifyErr = fmt.Errorf("%w: no supported intent found", contractx.ErrValidation)
		return in, nil
	}
	in.Intents = valid
	return in, nil
}
