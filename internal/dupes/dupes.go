package dupes

import (
	"sort"
	"strings"

	"mediacat/internal/catalog"
	"mediacat/internal/hash"
	"mediacat/internal/logging"
)

// DefaultThreshold is the maximum Hamming distance at which two perceptual
// hashes count as near-duplicates.
const DefaultThreshold = 10

// Member is one file in a duplicate group. Size is set for exact groups,
// Width and Height for near groups.
type Member struct {
	ID     int64  `json:"id"`
	Path   string `json:"path"`
	Size   int64  `json:"size,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ExactGroup is a set of files with byte-identical contents.
type ExactGroup struct {
	Hash    string   `json:"hash"`
	Members []Member `json:"files"`
}

// NearGroup is a set of visually similar images. Similarity is transitive
// within a group, so the max pairwise distance can exceed the threshold.
type NearGroup struct {
	MaxDistance int      `json:"max_distance"`
	Members     []Member `json:"files"`
}

// Report holds the duplicate findings for a library.
type Report struct {
	Exact []ExactGroup `json:"exact"`
	Near  []NearGroup  `json:"near"`
}

// Find reports exact and near duplicates. threshold bounds the pairwise
// Hamming distance for near groups. subdir, when non-empty, keeps only
// groups with at least one member under that root-relative directory; the
// other members stay visible so cross-directory duplicates can be resolved.
func Find(cat *catalog.Catalog, threshold int, subdir string) (*Report, error) {
	report := &Report{}

	exactGroups, err := cat.ExactDuplicateGroups()
	if err != nil {
		return nil, err
	}

	// Ids already reported as exact duplicates. Near groups consisting only
	// of these add no information and are suppressed.
	exactIDs := make(map[int64]bool)
	for _, g := range exactGroups {
		group := ExactGroup{Hash: g.Hash}
		inSubdir := false
		for _, f := range g.Files {
			group.Members = append(group.Members, Member{ID: f.ID, Path: f.Path, Size: f.Size})
			exactIDs[f.ID] = true
			if inSubdirectory(f.Path, subdir) {
				inSubdir = true
			}
		}
		if inSubdir {
			report.Exact = append(report.Exact, group)
		}
	}

	entries, err := cat.PerceptualEntries()
	if err != nil {
		return nil, err
	}

	for _, idxs := range groupBySimilarity(entries, threshold) {
		allExact := true
		inSubdir := false
		group := NearGroup{}
		var hashes []uint64
		for _, i := range idxs {
			e := entries[i]
			m := Member{ID: e.ID, Path: e.Path}
			if e.Width != nil {
				m.Width = *e.Width
			}
			if e.Height != nil {
				m.Height = *e.Height
			}
			group.Members = append(group.Members, m)
			hashes = append(hashes, e.Hash)
			if !exactIDs[e.ID] {
				allExact = false
			}
			if inSubdirectory(e.Path, subdir) {
				inSubdir = true
			}
		}
		if allExact || !inSubdir {
			continue
		}
		group.MaxDistance = maxPairwiseDistance(hashes)
		report.Near = append(report.Near, group)
	}

	sort.Slice(report.Near, func(i, j int) bool {
		return report.Near[i].Members[0].Path < report.Near[j].Members[0].Path
	})

	logging.Debug("Found %d exact and %d near duplicate groups", len(report.Exact), len(report.Near))
	return report, nil
}

// groupBySimilarity clusters entries whose pairwise distance is within the
// threshold, using union-find. Groups of one are dropped. Each group's
// indices stay in input (path) order.
func groupBySimilarity(entries []catalog.PerceptualEntry, threshold int) [][]int {
	u := newUnionFind(len(entries))
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if hash.Distance(entries[i].Hash, entries[j].Hash) <= threshold {
				u.union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := range entries {
		root := u.find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	var groups [][]int
	for _, idxs := range byRoot {
		if len(idxs) >= 2 {
			groups = append(groups, idxs)
		}
	}
	return groups
}

func maxPairwiseDistance(hashes []uint64) int {
	max := 0
	for i := 0; i < len(hashes); i++ {
		for j := i + 1; j < len(hashes); j++ {
			if d := hash.Distance(hashes[i], hashes[j]); d > max {
				max = d
			}
		}
	}
	return max
}

// inSubdirectory reports whether a root-relative file path lies under the
// given directory. An empty subdir matches everything.
func inSubdirectory(path, subdir string) bool {
	if subdir == "" {
		return true
	}
	return strings.HasPrefix(path, subdir+"/")
}

// unionFind is a disjoint-set forest with union by rank and path halving.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
