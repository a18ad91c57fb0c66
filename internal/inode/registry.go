// Package inode implements the Inode Registry: the partial bijection
// between the 64-bit integers the kernel uses to name filesystem objects and
// the (kind, row id) pairs that actually identify a note or folder row.
//
// The registry has no lock of its own. It is shared mutable state guarded by
// the same coarse mutex the rest of the file system state uses (see package
// fs); every method here assumes that mutex is already held.
package inode

import "github.com/jacobsa/fuse/fuseops"

// Kind tags which table a non-root inode's row lives in.
type Kind int

const (
	// KindFolder identifies a row in the folders table.
	KindFolder Kind = iota
	// KindNote identifies a row in the notes table.
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindNote:
		return "note"
	default:
		return "unknown"
	}
}

// Ref identifies a row: which table it came from, and its id.
type Ref struct {
	Kind Kind
	ID   string
}

// Root is the reserved inode for the logical parent with empty parent_id.
// It has no backing row.
const Root = fuseops.RootInodeID

// Registry is the bijection between fuseops.InodeID and Ref, plus the
// reserved root marker.
type Registry struct {
	byInode map[fuseops.InodeID]Ref
	byRef   map[Ref]fuseops.InodeID
	next    fuseops.InodeID
}

// New returns an empty Registry. Inode allocation starts at Root+1, since
// Root is reserved for the filesystem's root directory.
func New() *Registry {
	return &Registry{
		byInode: make(map[fuseops.InodeID]Ref),
		byRef:   make(map[Ref]fuseops.InodeID),
		next:    Root + 1,
	}
}

// Intern returns the existing inode for ref, allocating and recording a new
// one if this is the first time ref has been referenced. The mapping
// persists for the lifetime of the Registry once made (invariant: inode
// stability).
func (r *Registry) Intern(ref Ref) fuseops.InodeID {
	if id, ok := r.byRef[ref]; ok {
		return id
	}

	id := r.next
	r.next++
	r.byInode[id] = ref
	r.byRef[ref] = id
	return id
}

// Resolve returns the Ref an inode was interned for, and false if the inode
// is unknown (including the root inode, which has no Ref — callers must
// special-case inode.Root before calling Resolve).
func (r *Registry) Resolve(id fuseops.InodeID) (Ref, bool) {
	ref, ok := r.byInode[id]
	return ref, ok
}

// Forget is a no-op: this implementation retains inodes for the lifetime of
// the process rather than evicting on kernel ForgetInode callbacks, trading
// unbounded inode-table growth for the simplicity of never having to worry
// about a forgotten-then-resurrected row. It exists so that a future bounded
// LRU eviction scheme has a hook to attach to.
func (r *Registry) Forget(id fuseops.InodeID) {
	_ = id
}
