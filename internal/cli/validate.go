package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loadorder/internal/validate"
)

// Violation is a rule the on-disk state breaks.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateResult is the JSON payload of the validate command.
type ValidateResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the installation's load order files",
		Long: `Check the plugin directory and load order files against the game's rules
without changing anything. Repairs that would be made on load are printed as
warnings; rule violations are printed one per line.

Exit codes:
  0 - No violations
  1 - Violations found
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd, f)
			if err != nil {
				return fail(f, "failed to open installation", err)
			}
			defer s.Close()

			warnings, violations, err := s.handle.Audit()
			if err != nil {
				return fail(f, "failed to read installation", err)
			}

			result := ValidateResult{Valid: len(violations) == 0, Violations: []Violation{}}
			for _, v := range violations {
				result.Violations = append(result.Violations, Violation{Code: v.Code.String(), Message: v.Message})
			}

			text := "ok\n"
			if !result.Valid {
				text = validate.Describe(violations) + "\n"
			}
			if err := f.Success(text, result, warnings); err != nil {
				return err
			}
			if !result.Valid {
				return NewExitError(ExitFailure, fmt.Sprintf("%d load order rule violations", len(violations)))
			}
			return nil
		},
	}
}
