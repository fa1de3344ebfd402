package matching

// DisjointSet is a union-find structure over the indices [0, n).
type DisjointSet struct {
	parent []int
	rank   []int
}

// NewDisjointSet creates n singleton sets.
func NewDisjointSet(n int) *DisjointSet {
	ds := &DisjointSet{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

// Len returns the number of elements.
func (ds *DisjointSet) Len() int { return len(ds.parent) }

// Find returns the representative of x, compressing the path on the way.
func (ds *DisjointSet) Find(x int) int {
	root := x
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	for ds.parent[x] != root {
		next := ds.parent[x]
		ds.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets containing a and b. It returns false when they were
// already in the same set.
func (ds *DisjointSet) Union(a, b int) bool {
	ra, rb := ds.Find(a), ds.Find(b)
	if ra == rb {
		return false
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
	return true
}

// Connected reports whether a and b share a set.
func (ds *DisjointSet) Connected(a, b int) bool {
	return ds.Find(a) == ds.Find(b)
}

// Components returns every set as a slice of member indices. Sets are ordered
// by their smallest member and members are ascending.
func (ds *DisjointSet) Components() [][]int {
	byRoot := make(map[int]int)
	var out [][]int
	for i := range ds.parent {
		root := ds.Find(i)
		idx, ok := byRoot[root]
		if !ok {
			idx = len(out)
			byRoot[root] = idx
			out = append(out, nil)
		}
		out[idx] = append(out[idx], i)
	}
	return out
}
