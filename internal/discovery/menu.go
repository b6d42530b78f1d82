package discovery

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ceinfra/cebg/internal/env"
	"github.com/ceinfra/cebg/internal/ui"
)

// actionKind is what a chosen menu option dispatches to.
type actionKind int

const (
	actionCopy     actionKind = iota // copy discovery from option.source, then reverify
	actionContinue                   // fetch a release without any discovery check
	actionCancel                     // abort the deployment
)

// menuOption is one numbered entry in the recovery menu.
type menuOption struct {
	label  string
	kind   actionKind
	source env.Environment // set only for actionCopy
}

// buildMenu returns the remediation options for the probed sibling statuses.
// Staging wins over beta when both have discovery: staging is the closer,
// more representative source for production.
func buildMenu(stagingFound, betaFound bool) []menuOption {
	switch {
	case stagingFound:
		return []menuOption{
			{label: "Copy discovery from staging (recommended)", kind: actionCopy, source: env.Staging},
			{label: "Continue without discovery (risky)", kind: actionContinue},
			{label: "Cancel deployment", kind: actionCancel},
		}
	case betaFound:
		return []menuOption{
			{label: "Copy discovery from beta", kind: actionCopy, source: env.Beta},
			{label: "Continue without discovery (risky)", kind: actionContinue},
			{label: "Cancel deployment", kind: actionCancel},
		}
	default:
		return []menuOption{
			{label: "Continue without discovery (risky)", kind: actionContinue},
			{label: "Cancel deployment", kind: actionCancel},
		}
	}
}

// writeMenu prints the numbered option list.
func writeMenu(w io.Writer, options []menuOption) {
	fmt.Fprintf(w, "\n%s\n", ui.RenderHeading("Options:"))
	for i, opt := range options {
		fmt.Fprintf(w, "  %d. %s\n", i+1, opt.label)
	}
}

// selectOption validates a raw operator token against the menu. Pure: the
// read loop calls it once per token and re-prompts when ok is false.
func selectOption(token string, options []menuOption) (menuOption, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil || n < 1 || n > len(options) {
		return menuOption{}, false
	}
	return options[n-1], true
}
