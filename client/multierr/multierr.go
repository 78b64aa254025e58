// Package multierr collects errors from multi-step operations, typically
// teardown paths where every step runs regardless of earlier failures.
package multierr

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// MultiErr accumulates errors as they occur. Construct with New.
type MultiErr struct {
	collected []error
}

func New() *MultiErr {
	return &MultiErr{}
}

// Add records err. Nil errors are dropped.
func (m *MultiErr) Add(err error) {
	if err != nil {
		m.collected = append(m.collected, err)
	}
}

// Err returns nil when nothing was recorded and the error itself when
// there was exactly one. Multiple errors are folded into a single error
// listing every stack trace.
func (m *MultiErr) Err() error {
	switch len(m.collected) {
	case 0:
		return nil
	case 1:
		return m.collected[0]
	}

	var sb strings.Builder

	for i, err := range m.collected {
		if i > 0 {
			sb.WriteString("\n")
		}

		fmt.Fprintf(&sb, "%d. %s", i+1, errors.ErrorStack(err))
	}

	return errors.Errorf("%d errors occurred:\n%s", len(m.collected), sb.String())
}

// Is matches err against target after unwrapping juju annotation layers,
// so sentinel comparisons keep working on traced errors.
func Is(err, target error) bool {
	return stderrors.Is(errors.Cause(err), target)
}
