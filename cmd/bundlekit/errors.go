// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bundlekit/bundlekit/internal/config"
	"github.com/bundlekit/bundlekit/internal/dag"
	"github.com/bundlekit/bundlekit/internal/issue"
	"github.com/bundlekit/bundlekit/pkg/cueutil"
	"github.com/bundlekit/bundlekit/pkg/descriptor"
	"github.com/bundlekit/bundlekit/pkg/loader"
	"github.com/bundlekit/bundlekit/pkg/parser"
	"github.com/bundlekit/bundlekit/pkg/resolver"
)

// classifyError maps err to an actionable error and its exit code.
func classifyError(err error) (*issue.ActionableError, int) {
	var (
		conflict     *descriptor.MergeConflictError
		unresolvable *dag.UnresolvableError
		validation   *cueutil.ValidationError
	)

	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae, ExitGeneric
	}

	switch {
	case errors.As(err, &conflict):
		return issue.NewErrorContext().
			WithOperation("resolve bundles").
			WithResource(conflict.Name).
			WithIssue(issue.MergeConflictId).
			WithSuggestions(
				"Declare "+conflict.Name+" with a single kind in every source",
				"Rename one of the declarations if they are different units",
			).
			Wrap(err).
			Build(), ExitMergeConflict

	case errors.As(err, &unresolvable):
		return issue.NewErrorContext().
			WithOperation("order bundles").
			WithResource(strings.Join(unresolvable.Remaining, ", ")).
			WithIssue(issue.DependencyCycleId).
			WithSuggestions(
				"Remove one load_after entry from the cycle",
				"Check that no bundle supersedes a name it also loads after",
			).
			Wrap(err).
			Build(), ExitUnresolvable

	case errors.Is(err, resolver.ErrUnresolvable):
		return issue.WrapWithOperation(err, "order bundles"), ExitUnresolvable

	case errors.Is(err, descriptor.ErrInvalidEnvironment):
		return issue.NewErrorContext().
			WithOperation("select environment").
			WithIssue(issue.InvalidEnvironmentId).
			WithSuggestion("Use --env prod or --env dev").
			Wrap(err).
			Build(), ExitGeneric

	case errors.As(err, &validation),
		errors.Is(err, cueutil.ErrInvalidDocument),
		errors.Is(err, parser.ErrUnsupportedResource),
		errors.Is(err, parser.ErrMissingBundleName),
		errors.Is(err, descriptor.ErrInvalidName),
		errors.Is(err, descriptor.ErrSelfReference),
		errors.Is(err, descriptor.ErrInvalidKind):
		ctx := issue.NewErrorContext().
			WithOperation("read bundle declarations").
			WithIssue(issue.ManifestParseFailedId).
			WithSuggestion("Run 'bundlekit plugins' to see which files each source reads").
			Wrap(err)
		if validation != nil {
			ctx = ctx.WithResource(validation.FilePath)
		}
		return ctx.Build(), ExitGeneric

	case errors.Is(err, loader.ErrCacheWrite):
		return issue.NewErrorContext().
			WithOperation("write bundle cache").
			WithIssue(issue.CacheWriteFailedId).
			WithSuggestions(
				"Check that the cache directory is writable",
				"Use --no-cache to skip the cache",
			).
			Wrap(err).
			Build(), ExitGeneric
	}

	if ae != nil {
		return ae, ExitGeneric
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		return issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			Build(), ExitGeneric
	}
	return issue.WrapWithOperation(err, "run bundlekit"), ExitGeneric
}

// fail renders err on stderr and returns it as an *ExitError. Verbose mode
// adds the error chain and the catalog guidance.
func (a *App) fail(cmd *cobra.Command, flags *rootFlagValues, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	ae, code := classifyError(err)
	fmt.Fprintln(a.stderr, ErrorStyle.Render("✗ ")+ae.Format(flags.verbose))

	if entry := ae.CatalogEntry(); entry != nil && flags.verbose {
		if rendered, renderErr := entry.Render("auto"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: code, Err: ae}
}
