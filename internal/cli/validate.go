package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/spf13/cobra"

	"github.com/irqtools/handoff/internal/harness"
)

//go:embed scenario.cue
var scenarioSchema string

// ValidationError describes one problem found in a scenario file.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results for all checked files.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario YAML files against the scenario schema.

Each file is checked twice: against the CUE schema (field names, value
domains, context syntax), then by the harness loader (cross-field rules the
schema cannot express, such as "move requires a value").

Exit codes:
  0 - All files valid
  1 - Validation errors found
  2 - Command error (file not readable, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cctx := cuecontext.New()
	schema := cctx.CompileString(scenarioSchema, cue.Filename("scenario.cue"))
	if err := schema.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to compile scenario schema", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if !def.Exists() {
		return NewExitError(ExitCommandError, "scenario schema is missing #Scenario")
	}

	result := ValidationResult{Valid: true}
	for _, path := range paths {
		formatter.VerboseLog("validating %s", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
		}
		result.Files++

		for _, verr := range validateScenarioBytes(cctx, def, path, data) {
			result.Errors = append(result.Errors, verr)
			result.Valid = false
		}
	}

	if !result.Valid {
		if opts.Format == "json" {
			if err := formatter.Success(result); err != nil {
				return err
			}
		} else {
			for _, verr := range result.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verr.File, verr.Message)
			}
		}
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d validation error(s) in %d file(s)", len(result.Errors), result.Files))
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("%d file(s) valid", result.Files))
}

// validateScenarioBytes checks one scenario document: CUE schema first,
// then the harness loader's structural rules.
func validateScenarioBytes(cctx *cue.Context, def cue.Value, path string, data []byte) []ValidationError {
	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return []ValidationError{{File: path, Message: fmt.Sprintf("invalid YAML: %v", err)}}
	}

	val := cctx.BuildFile(file)
	if err := val.Err(); err != nil {
		return []ValidationError{{File: path, Message: err.Error()}}
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var verrs []ValidationError
		for _, e := range cueerrors.Errors(err) {
			verrs = append(verrs, ValidationError{File: path, Message: e.Error()})
		}
		return verrs
	}

	if _, err := harness.ParseScenario(data); err != nil {
		return []ValidationError{{File: path, Message: err.Error()}}
	}
	return nil
}
