package resolve

// Tree resolves a repository path to the content hash of the blob (or
// subtree) stored at that path. Implementations return an error wrapping
// ErrMissingTrackedPath when the path does not exist at that commit.
type Tree interface {
	Hash(path string) (string, error)
}

// Commit is one node of the ancestry graph.
type Commit struct {
	ID      string
	Parents []string
	Tree    Tree
}

// History looks up commits by id. The graph is acyclic; merge commits
// have more than one parent.
type History interface {
	Commit(id string) (*Commit, error)
}
