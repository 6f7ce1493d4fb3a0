package registry

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// DependencyIssue describes a dependency that the installed set does not
// satisfy.
type DependencyIssue struct {
	Name      string
	Range     string
	Installed string
	Reason    string
}

func (i DependencyIssue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Name, i.Range, i.Reason)
}

// CheckDependencies checks a manifest's dependency map against the
// registered extensions. A dependency matches a record by id or name.
// Issues are returned sorted by name; an empty result means every
// dependency is satisfied.
func (r *Registry) CheckDependencies(deps map[string]string) []DependencyIssue {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []DependencyIssue
	for _, name := range names {
		rng := deps[name]
		installed, ok := r.lookup(name)
		if !ok {
			issues = append(issues, DependencyIssue{Name: name, Range: rng, Reason: "not installed"})
			continue
		}

		constraint, err := semver.NewConstraint(rng)
		if err != nil {
			issues = append(issues, DependencyIssue{Name: name, Range: rng, Installed: installed, Reason: "invalid version range"})
			continue
		}
		version, err := semver.NewVersion(installed)
		if err != nil {
			issues = append(issues, DependencyIssue{Name: name, Range: rng, Installed: installed, Reason: "installed version is not semver"})
			continue
		}
		if !constraint.Check(version) {
			issues = append(issues, DependencyIssue{
				Name:      name,
				Range:     rng,
				Installed: installed,
				Reason:    fmt.Sprintf("installed %s does not satisfy range", installed),
			})
		}
	}
	return issues
}

func (r *Registry) lookup(name string) (string, bool) {
	if info, ok := r.records[name]; ok {
		return info.Version, true
	}
	for _, id := range r.order {
		if info := r.records[id]; info.Name == name {
			return info.Version, true
		}
	}
	return "", false
}
