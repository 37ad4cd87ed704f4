package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eclipse-csi/otterdog-sub000/internal/operations"
)

var validateCmd = &cobra.Command{
	Use:   "validate [ORG...]",
	Short: "Validate the declarative configuration of organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var totalErrors int
		for _, name := range orgArgs(cfg, args) {
			o, err := operations.NewOrgContext(ctx, cfg, name, operations.ContextOptions{
				NoWebUI: true,
				Out:     cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			count, err := validateOne(ctx, o)
			if err != nil {
				return err
			}
			totalErrors += count
		}
		if totalErrors > 0 {
			return exitCodeError{
				code: totalErrors,
				msg:  fmt.Sprintf("validation found %d error(s)", totalErrors),
			}
		}
		return nil
	},
}

func validateOne(ctx context.Context, o *operations.OrgContext) (int, error) {
	count, err := operations.Validate(ctx, o)
	if err != nil {
		logrus.Errorf("organization %s: %v", o.Org.Name, err)
		return 0, err
	}
	return count, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
