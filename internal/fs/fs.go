// Package fs wires the Joplin SQLite note store to the kernel's FUSE
// protocol. It implements fuseutil.FileSystem by translating each kernel
// callback into store lookups and mutations, guarding all shared state with
// a single coarse mutex rather than per-inode locks.
package fs

import (
	"os"
	"time"

	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/inode"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/store"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

// Config carries the dependencies and mount-time parameters a FileSystem
// needs. It is deliberately small: this adapter has no notion of caching
// policy, bucket sharding, or any of the other tunables a cloud-object file
// system needs.
type Config struct {
	Store *store.Store
	Clock timeutil.Clock
	Uid   uint32
	Gid   uint32
}

// FileSystem implements fuseutil.FileSystem against a single Joplin SQLite
// database. All exported methods are dispatched to by
// fuseutil.NewFileSystemServer on their own goroutine; fs.mu serializes them
// against each other and against the mutation helpers in mutate.go.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	/////////////////////////
	// Dependencies
	/////////////////////////

	store *store.Store
	clock timeutil.Clock

	/////////////////////////
	// Constant data
	/////////////////////////

	uid uint32
	gid uint32

	/////////////////////////
	// Mutable state
	/////////////////////////

	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	inodes *inode.Registry

	// GUARDED_BY(mu)
	handles map[fuseops.HandleID]*dirHandle

	// fileHandles maps an open file handle to the inode it was opened
	// against, since fuseops.ReleaseFileHandleOp carries only a handle.
	//
	// GUARDED_BY(mu)
	fileHandles map[fuseops.HandleID]fuseops.InodeID

	// GUARDED_BY(mu)
	writeBufs map[fuseops.InodeID]*writeBuffer

	// GUARDED_BY(mu)
	nextHandle fuseops.HandleID
}

// New builds a FileSystem ready to be wrapped by fuseutil.NewFileSystemServer.
func New(cfg *Config) *FileSystem {
	fs := &FileSystem{
		store:       cfg.Store,
		clock:       cfg.Clock,
		uid:         cfg.Uid,
		gid:         cfg.Gid,
		inodes:      inode.New(),
		handles:     make(map[fuseops.HandleID]*dirHandle),
		fileHandles: make(map[fuseops.HandleID]fuseops.InodeID),
		writeBufs:   make(map[fuseops.InodeID]*writeBuffer),
		nextHandle:  1,
	}
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)
	return fs
}

// Server builds the fuse.Server that Mount expects.
func (fs *FileSystem) Server() fuse.Server {
	return fuseutil.NewFileSystemServer(fs)
}

func (fs *FileSystem) checkInvariants() {
	// This is the function fs.mu calls around each lock and unlock. Its body
	// is empty: no structural invariant, including the registry's inode/ref
	// bijection, is verified here.
}

func (fs *FileSystem) Init(op *fuseops.InitOp) error {
	return nil
}

// now returns the current time as both a time.Time (for InodeAttributes) and
// Joplin-style epoch milliseconds (for row timestamps).
func (fs *FileSystem) now() (time.Time, int64) {
	t := fs.clock.Now()
	return t, store.NowMillis(t)
}

const (
	dirMode  = os.ModeDir | 0755
	fileMode = os.FileMode(0644)
)
