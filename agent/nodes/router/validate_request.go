package routernode

import (
	"strings"
	"time"
)

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Query.Text)
	if text == "" {
		return nil, ErrInvalidQuery
	}

	q := in.Query
	q.Text = text
	return &GraphState{
		Query: q,
		Now:   nowFn().UTC(),
	}, nil
}
