package fs

import (
	"context"
	"time"

	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/inode"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/metrics"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/store"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
)

// parentFolderID resolves a parent inode to the folder id it names, or ""
// for the root. Returns ENOTDIR if the inode names a note.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) parentFolderID(parent fuseops.InodeID) (string, error) {
	if parent == inode.Root {
		return "", nil
	}
	ref, ok := fs.inodes.Resolve(parent)
	if !ok {
		return "", fuse.ENOENT
	}
	if ref.Kind != inode.KindFolder {
		return "", fuse.ENOTDIR
	}
	return ref.ID, nil
}

// resolved is what the path resolver returns: the ref it found, interned as
// an inode, plus its current attributes.
type resolved struct {
	Ref   inode.Ref
	Inode fuseops.InodeID
	Attrs fuseops.InodeAttributes
}

// resolve implements the Path Resolver: folders are checked before notes, per
// the collision rule's asymmetry.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) resolve(ctx context.Context, parentID string, name string) (resolved, error) {
	if f, err := store.LookupFolder(ctx, fs.store.DB, parentID, name); err == nil {
		ref := inode.Ref{Kind: inode.KindFolder, ID: f.ID}
		id := fs.inodes.Intern(ref)
		attrs, aerr := fs.attributesForRef(ctx, ref)
		if aerr != nil {
			return resolved{}, aerr
		}
		return resolved{Ref: ref, Inode: id, Attrs: attrs}, nil
	} else if !store.IsNotFound(err) {
		return resolved{}, err
	}

	if title, ok := noteCandidate(name); ok {
		if n, err := store.LookupNote(ctx, fs.store.DB, parentID, title); err == nil {
			ref := inode.Ref{Kind: inode.KindNote, ID: n.ID}
			id := fs.inodes.Intern(ref)
			attrs, aerr := fs.attributesForRef(ctx, ref)
			if aerr != nil {
				return resolved{}, aerr
			}
			return resolved{Ref: ref, Inode: id, Attrs: attrs}, nil
		} else if !store.IsNotFound(err) {
			return resolved{}, err
		}
	}

	return resolved{}, fuse.ENOENT
}

func (fs *FileSystem) LookUpInode(op *fuseops.LookUpInodeOp) (err error) {
	defer metrics.Track("LookUpInode", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parentID, err := fs.parentFolderID(op.Parent)
	if err != nil {
		return err
	}

	r, err := fs.resolve(op.Context(), parentID, op.Name)
	if err != nil {
		return err
	}

	op.Entry.Child = r.Inode
	op.Entry.Attributes = r.Attrs
	return nil
}
