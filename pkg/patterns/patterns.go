// Package patterns infers the likely algorithmic pattern of a problem from its
// statement. The heuristics are keyword based and intentionally shallow.
package patterns

import "strings"

// General is reported when no rule matches.
const (
	General           = "General Problem Solving"
	GeneralComplexity = "Start with brute force, then optimize"
)

// Match is the result of Infer.
type Match struct {
	Pattern    string `json:"pattern"`
	Complexity string `json:"complexity"`
	// Confident is false when no rule matched and the general advice was returned.
	Confident bool `json:"confident"`
}

type rule struct {
	any        []string
	pattern    string
	complexity string
}

// Rules are checked in order; the first rule with a matching phrase wins.
var rules = []rule{
	{
		any:        []string{"two sum", "add up to", "sum up to", "pair with sum"},
		pattern:    "Hash Table / Two Pointer",
		complexity: "O(n) time, O(n) space with hash table",
	},
	{
		any:        []string{"sorted array", "sorted list", "rotated sorted", "search insert"},
		pattern:    "Binary Search / Two Pointer",
		complexity: "O(log n) for binary search",
	},
	{
		any:        []string{"substring", "subarray", "consecutive", "window"},
		pattern:    "Sliding Window",
		complexity: "O(n) time, O(k) space for the window",
	},
	{
		any:        []string{"linked list", "listnode"},
		pattern:    "Linked List / Fast and Slow Pointers",
		complexity: "O(n) time, O(1) space",
	},
	{
		any:        []string{"binary tree", "bst", "tree node", "treenode"},
		pattern:    "Tree Traversal (DFS / BFS)",
		complexity: "O(n) time, O(h) space for recursion",
	},
	{
		any:        []string{"graph", "islands", "grid", "connected", "course schedule"},
		pattern:    "Graph Search (DFS / BFS)",
		complexity: "O(V + E) time",
	},
	{
		any:        []string{"kth largest", "kth smallest", "top k", "k closest", "median"},
		pattern:    "Heap / Priority Queue",
		complexity: "O(n log k) time, O(k) space",
	},
	{
		any:        []string{"interval", "meeting rooms", "overlapping"},
		pattern:    "Intervals / Sorting",
		complexity: "O(n log n) time for the sort",
	},
	{
		any:        []string{"number of ways", "climbing stairs", "longest increasing", "minimum cost", "coin"},
		pattern:    "Dynamic Programming",
		complexity: "O(n) to O(n^2) time, memoize overlapping subproblems",
	},
	{
		any:        []string{"parentheses", "brackets", "next greater"},
		pattern:    "Stack",
		complexity: "O(n) time, O(n) space",
	},
	{
		any:        []string{"permutations", "combinations", "subsets", "n-queens"},
		pattern:    "Backtracking",
		complexity: "Exponential; prune the search early",
	},
}

// Infer returns the best guess for problem. ok is false only when the
// statement is blank, in which case nothing can be derived.
func Infer(problem string) (m Match, ok bool) {
	text := strings.ToLower(strings.TrimSpace(problem))
	if text == "" {
		return Match{}, false
	}
	for _, r := range rules {
		for _, phrase := range r.any {
			if strings.Contains(text, phrase) {
				return Match{Pattern: r.pattern, Complexity: r.complexity, Confident: true}, true
			}
		}
	}
	return Match{Pattern: General, Complexity: GeneralComplexity}, true
}

// Known returns every pattern name the rules can produce, General included.
func Known() []string {
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.pattern)
	}
	return append(out, General)
}
