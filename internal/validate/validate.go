// Package validate checks a candidate load order and active set against a
// game's structural rules before anything is persisted.
//
// Check is a pure function: it never mutates its input. Rules are applied in
// a fixed sequence and the first failing rule decides the error:
//
//  1. no duplicate names in the load order
//  2. masters before non-masters (games enforcing master precedence)
//  3. every active plugin is in the load order
//  4. active count within the game's ceiling
//  5. every active plugin has a Windows-1252 representable name
//  6. every plugin in the load order is installed
//  7. the game's master file loads first (when required)
//  8. implicitly active plugins that are installed are active
package validate

import (
	"fmt"
	"strings"

	"github.com/roach88/loadorder/internal/plugin"
	"github.com/roach88/loadorder/internal/status"
)

// Candidate is a proposed load order and active set.
type Candidate struct {
	Order  []string
	Active []string
}

// Rules are the structural constraints of one game installation.
type Rules struct {
	// MasterFirst enforces masters before non-masters.
	MasterFirst bool

	// MaxActive is the active plugin ceiling. Zero disables the check.
	MaxActive int

	// Installed is the current plugin scan. Master flags and installation
	// checks come from it; nil skips rules that need it.
	Installed *plugin.Set

	// MasterFile, if set, must be the first plugin when it is installed.
	MasterFile string

	// ImplicitActive plugins must be active when installed.
	ImplicitActive []string
}

type rule func(c Candidate, r Rules) []*status.Error

var rules = []rule{
	checkDuplicates,
	checkMasterPrecedence,
	checkActiveSubset,
	checkActiveCeiling,
	checkActiveFilenames,
	checkInstalled,
	checkMasterFileFirst,
	checkImplicitActive,
}

// Check returns the error of the first failing rule, or nil.
func Check(c Candidate, r Rules) error {
	for _, fn := range rules {
		if errs := fn(c, r); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

// CheckAll returns every violation, in rule order. Used for reporting on
// files that were not produced by this library.
func CheckAll(c Candidate, r Rules) []*status.Error {
	var all []*status.Error
	for _, fn := range rules {
		all = append(all, fn(c, r)...)
	}
	return all
}

func checkDuplicates(c Candidate, _ Rules) []*status.Error {
	var errs []*status.Error
	seen := make(map[string]bool, len(c.Order))
	for _, name := range c.Order {
		k := plugin.Key(name)
		if seen[k] {
			errs = append(errs, status.Errorf(status.InvalidArgs, "plugin %q appears more than once in the load order", name))
			continue
		}
		seen[k] = true
	}
	return errs
}

// checkMasterPrecedence finds the first non-master; any master after it is
// a violation.
func checkMasterPrecedence(c Candidate, r Rules) []*status.Error {
	if !r.MasterFirst || r.Installed == nil {
		return nil
	}
	boundary := -1
	for i, name := range c.Order {
		if !r.Installed.IsMaster(name) {
			boundary = i
			break
		}
	}
	if boundary < 0 {
		return nil
	}
	var errs []*status.Error
	for _, name := range c.Order[boundary+1:] {
		if r.Installed.IsMaster(name) {
			errs = append(errs, status.Errorf(status.InvalidArgs,
				"master %q is positioned after non-master %q", name, c.Order[boundary]))
		}
	}
	return errs
}

func checkActiveSubset(c Candidate, _ Rules) []*status.Error {
	inOrder := keySet(c.Order)
	var errs []*status.Error
	for _, name := range c.Active {
		if !inOrder[plugin.Key(name)] {
			errs = append(errs, status.Errorf(status.InvalidArgs, "active plugin %q is not in the load order", name))
		}
	}
	return errs
}

func checkActiveCeiling(c Candidate, r Rules) []*status.Error {
	if r.MaxActive <= 0 || len(c.Active) <= r.MaxActive {
		return nil
	}
	return []*status.Error{status.Errorf(status.InvalidArgs,
		"%d plugins are active, more than the maximum of %d", len(c.Active), r.MaxActive)}
}

func checkActiveFilenames(c Candidate, _ Rules) []*status.Error {
	var errs []*status.Error
	for _, name := range c.Active {
		if err := plugin.ValidateFilename(name); err != nil {
			if se, ok := err.(*status.Error); ok {
				errs = append(errs, se)
			}
		}
	}
	return errs
}

func checkInstalled(c Candidate, r Rules) []*status.Error {
	if r.Installed == nil {
		return nil
	}
	var missing []string
	for _, name := range c.Order {
		if !r.Installed.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []*status.Error{status.Errorf(status.FileNotFound,
		"plugins are not installed: %s", strings.Join(missing, ", "))}
}

func checkMasterFileFirst(c Candidate, r Rules) []*status.Error {
	if r.MasterFile == "" || len(c.Order) == 0 {
		return nil
	}
	if r.Installed != nil && !r.Installed.Has(r.MasterFile) {
		return nil
	}
	if !keySet(c.Order)[plugin.Key(r.MasterFile)] {
		return nil
	}
	if !plugin.EqualNames(c.Order[0], r.MasterFile) {
		return []*status.Error{status.Errorf(status.InvalidArgs,
			"%s must load first, found %q", r.MasterFile, c.Order[0])}
	}
	return nil
}

func checkImplicitActive(c Candidate, r Rules) []*status.Error {
	active := keySet(c.Active)
	var errs []*status.Error
	for _, name := range r.ImplicitActive {
		if r.Installed != nil && !r.Installed.Has(name) {
			continue
		}
		if !active[plugin.Key(name)] {
			errs = append(errs, status.Errorf(status.InvalidArgs, "%s is always loaded and cannot be inactive", name))
		}
	}
	return errs
}

func keySet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[plugin.Key(n)] = true
	}
	return m
}

// Describe formats violations one per line, for reports.
func Describe(errs []*status.Error) string {
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	}
	return b.String()
}
