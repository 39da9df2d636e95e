package course

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// SupportedMajor is the course file format major version this build reads.
const SupportedMajor = "v1"

// validate performs all structural checks and returns a combined error
// describing every problem found.
func validate(info Info, concepts []Concept, syl Syllabus, misconceptions []Misconception) error {
	var errs []string

	v := info.Version
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	switch {
	case info.Version == "":
		errs = append(errs, "course version is required")
	case !semver.IsValid(v):
		errs = append(errs, fmt.Sprintf("course version %q is not a semantic version", info.Version))
	case semver.Major(v) != SupportedMajor:
		errs = append(errs, fmt.Sprintf("course version %s is not supported (want %s.x)", info.Version, SupportedMajor))
	}

	if len(concepts) == 0 {
		errs = append(errs, "course has no concepts")
	}

	idSet := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		if c.ID == "" {
			errs = append(errs, fmt.Sprintf("concept %q has no ID", c.Name))
			continue
		}
		if idSet[c.ID] {
			errs = append(errs, fmt.Sprintf("duplicate concept ID: %q", c.ID))
		}
		idSet[c.ID] = true
		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("concept %q has no name", c.ID))
		}
	}

	for _, c := range concepts {
		for _, prereqID := range c.Prerequisites {
			if !idSet[prereqID] {
				errs = append(errs, fmt.Sprintf("concept %q references nonexistent prerequisite %q", c.ID, prereqID))
			}
		}
	}

	if cycle := findCycle(concepts); len(cycle) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected involving concepts: %s", strings.Join(cycle, ", ")))
	}

	weekSet := make(map[int]bool, len(syl.Weeks))
	for _, w := range syl.Weeks {
		if weekSet[w.Number] {
			errs = append(errs, fmt.Sprintf("duplicate week %d", w.Number))
		}
		weekSet[w.Number] = true
		for _, id := range w.Topics {
			if !idSet[id] {
				errs = append(errs, fmt.Sprintf("week %d lists unknown concept %q", w.Number, id))
			}
		}
	}

	assessmentSet := make(map[string]bool, len(syl.Assessments))
	for _, a := range syl.Assessments {
		if assessmentSet[a.ID] {
			errs = append(errs, fmt.Sprintf("duplicate assessment ID: %q", a.ID))
		}
		assessmentSet[a.ID] = true
		for _, id := range a.Concepts {
			if !idSet[id] {
				errs = append(errs, fmt.Sprintf("assessment %q covers unknown concept %q", a.ID, id))
			}
		}
	}

	for _, m := range misconceptions {
		if len(m.Patterns) == 0 {
			errs = append(errs, fmt.Sprintf("misconception %q has no patterns", m.ID))
		}
		for _, id := range m.Concepts {
			if !idSet[id] {
				errs = append(errs, fmt.Sprintf("misconception %q tagged to unknown concept %q", m.ID, id))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("course validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// findCycle runs Kahn's algorithm and returns the IDs left with unmet
// prerequisites, which is empty for an acyclic graph.
func findCycle(concepts []Concept) []string {
	inDegree := make(map[string]int, len(concepts))
	adj := make(map[string][]string)
	for _, c := range concepts {
		inDegree[c.ID] = len(c.Prerequisites)
		for _, prereqID := range c.Prerequisites {
			adj[prereqID] = append(adj[prereqID], c.ID)
		}
	}

	var queue []string
	for _, c := range concepts {
		if inDegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, depID := range adj[id] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited >= len(concepts) {
		return nil
	}
	var cycle []string
	for _, c := range concepts {
		if inDegree[c.ID] > 0 {
			cycle = append(cycle, c.ID)
		}
	}
	return cycle
}

// compileAll compiles case-insensitive patterns.
func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
