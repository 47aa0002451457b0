package batch

import (
	"regexp"
	"strings"

	"github.com/CodexForgeBR/batch-loop/internal/state"
)

// Dependency keyword patterns matched against feature descriptions.
// The captured text is compared against the other features' descriptions.
var depKeywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brequires\s+(.+?)(?:[.;,]|$)`),
	regexp.MustCompile(`(?i)\bafter\s+(.+?)(?:[.;,]|$)`),
	regexp.MustCompile(`(?i)\bdepends\s+on\s+(.+?)(?:[.;,]|$)`),
}

// fileRefPattern extracts file references like "internal/auth/login.go"
// from feature text.
var fileRefPattern = regexp.MustCompile(`\b[\w./-]*\w+\.(?:go|py|js|ts|rb|rs|java|md|json|yaml|yml|sql|toml)\b`)

// SortByDependencies orders features so declared dependencies run first,
// using Kahn's algorithm. Edges come from explicit depends_on entries,
// "requires X" / "after Y" / "depends on Z" keywords in descriptions, and
// file-reference overlap (two features naming the same file keep their
// input order). A detected cycle degrades gracefully to the original input
// order rather than failing the batch.
func SortByDependencies(features []state.Feature) []state.Feature {
	n := len(features)
	if n < 2 {
		return features
	}

	descs := make([]string, n)
	for i, f := range features {
		descs[i] = strings.ToLower(f.Description)
	}

	adj := make([][]int, n)
	indegree := make([]int, n)
	seen := make(map[[2]int]bool)
	addEdge := func(from, to int) {
		if from == to || seen[[2]int{from, to}] {
			return
		}
		seen[[2]int{from, to}] = true
		adj[from] = append(adj[from], to)
		indegree[to]++
	}

	// Keyword and explicit dependencies: edge from dependency to dependent.
	for i, f := range features {
		refs := append([]string(nil), f.DependsOn...)
		for _, p := range depKeywordPatterns {
			for _, m := range p.FindAllStringSubmatch(f.Description, -1) {
				refs = append(refs, m[1])
			}
		}
		for _, ref := range refs {
			r := strings.ToLower(strings.TrimSpace(ref))
			if r == "" {
				continue
			}
			for j := range features {
				if j != i && strings.Contains(descs[j], r) {
					addEdge(j, i)
				}
			}
		}
	}

	// File-reference overlap: the earlier feature touching a file stays
	// first. These edges always point forward, so they cannot create a
	// cycle on their own.
	fileRefs := make([][]string, n)
	for i, f := range features {
		fileRefs[i] = fileRefPattern.FindAllString(strings.ToLower(f.Description), -1)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if shareRef(fileRefs[i], fileRefs[j]) {
				addEdge(i, j)
			}
		}
	}

	// Kahn's algorithm, stable: pick the lowest-index ready feature each
	// round so unrelated features keep their input order.
	order := make([]int, 0, n)
	done := make([]bool, n)
	for len(order) < n {
		pick := -1
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				pick = i
				break
			}
		}
		if pick < 0 {
			// Cycle: fall back to input order.
			return append([]state.Feature(nil), features...)
		}
		done[pick] = true
		order = append(order, pick)
		for _, to := range adj[pick] {
			indegree[to]--
		}
	}

	sorted := make([]state.Feature, n)
	for k, idx := range order {
		sorted[k] = features[idx]
	}
	return sorted
}

func shareRef(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
