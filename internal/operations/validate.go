package operations

import (
	"context"
	"fmt"
)

// Validate evaluates the declarative configuration and runs the
// validator only. The returned count is the number of errors, which the
// CLI uses as its exit code.
func Validate(ctx context.Context, o *OrgContext) (int, error) {
	org, unknown, err := o.LoadExpected(ctx)
	if err != nil {
		return 0, err
	}
	errorCount := o.validateExpected(org, unknown)
	if errorCount == 0 {
		fmt.Fprintf(o.Out, "configuration of %s is valid\n", o.Org.Name)
	} else {
		fmt.Fprintf(o.Out, "configuration of %s has %d error(s)\n", o.Org.Name, errorCount)
	}
	return errorCount, nil
}
