package fs

import (
	"context"
	"database/sql"
	"time"

	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/inode"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/metrics"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/store"
	"github.com/google/uuid"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
)

// CreateFile implements create(parent_inode, name): the name must carry the
// fixed note suffix, which is stripped to obtain the stored title.
func (fs *FileSystem) CreateFile(op *fuseops.CreateFileOp) (err error) {
	defer metrics.Track("CreateFile", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ctx := op.Context()

	parentID, err := fs.parentFolderID(op.Parent)
	if err != nil {
		return err
	}

	title, ok := noteCandidate(op.Name)
	if !ok {
		return fuse.EINVAL
	}

	id := uuid.NewString()
	_, nowMs := fs.now()

	err = store.WithTxn(ctx, fs.store.DB, func(tx *sql.Tx) error {
		return store.InsertNote(ctx, tx, store.Note{
			ID:              id,
			ParentID:        parentID,
			Title:           title,
			Body:            "",
			CreatedTime:     nowMs,
			UpdatedTime:     nowMs,
			UserUpdatedTime: nowMs,
		})
	})
	if err != nil {
		return err
	}

	ref := inode.Ref{Kind: inode.KindNote, ID: id}
	inodeID := fs.inodes.Intern(ref)
	fs.writeBufs[inodeID] = newWriteBuffer("")

	attrs, err := fs.attributesForRef(ctx, ref)
	if err != nil {
		return err
	}

	handle := fs.nextHandle
	fs.nextHandle++
	fs.fileHandles[handle] = inodeID
	op.Handle = handle

	op.Entry.Child = inodeID
	op.Entry.Attributes = attrs
	return nil
}

// MkDir implements mkdir(parent_inode, name).
func (fs *FileSystem) MkDir(op *fuseops.MkDirOp) (err error) {
	defer metrics.Track("MkDir", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ctx := op.Context()

	parentID, err := fs.parentFolderID(op.Parent)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	_, nowMs := fs.now()

	err = store.WithTxn(ctx, fs.store.DB, func(tx *sql.Tx) error {
		return store.InsertFolder(ctx, tx, store.Folder{
			ID:              id,
			ParentID:        parentID,
			Title:           op.Name,
			CreatedTime:     nowMs,
			UpdatedTime:     nowMs,
			UserUpdatedTime: nowMs,
		})
	})
	if err != nil {
		return err
	}

	ref := inode.Ref{Kind: inode.KindFolder, ID: id}
	inodeID := fs.inodes.Intern(ref)

	attrs, err := fs.attributesForRef(ctx, ref)
	if err != nil {
		return err
	}

	op.Entry.Child = inodeID
	op.Entry.Attributes = attrs
	return nil
}

// Unlink implements unlink(parent, name): resolve to a note (EISDIR if the
// name resolves to a folder), hard-delete its row. The inode is not removed
// from the registry (see inode.Registry.Forget).
func (fs *FileSystem) Unlink(op *fuseops.UnlinkOp) (err error) {
	defer metrics.Track("Unlink", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ctx := op.Context()

	parentID, err := fs.parentFolderID(op.Parent)
	if err != nil {
		return err
	}

	r, err := fs.resolve(ctx, parentID, op.Name)
	if err != nil {
		return err
	}
	if r.Ref.Kind != inode.KindNote {
		return fuse.EISDIR
	}

	if err := store.WithTxn(ctx, fs.store.DB, func(tx *sql.Tx) error {
		return store.DeleteNote(ctx, tx, r.Ref.ID)
	}); err != nil {
		return err
	}

	delete(fs.writeBufs, r.Inode)
	return nil
}

// RmDir implements rmdir(parent, name): refuses ENOTEMPTY if the folder has
// any live child.
func (fs *FileSystem) RmDir(op *fuseops.RmDirOp) (err error) {
	defer metrics.Track("RmDir", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ctx := op.Context()

	parentID, err := fs.parentFolderID(op.Parent)
	if err != nil {
		return err
	}

	f, err := store.LookupFolder(ctx, fs.store.DB, parentID, op.Name)
	if store.IsNotFound(err) {
		return fuse.ENOENT
	}
	if err != nil {
		return err
	}

	hasChildren, err := store.HasChildren(ctx, fs.store.DB, f.ID)
	if err != nil {
		return err
	}
	if hasChildren {
		return fuse.ENOTEMPTY
	}

	return store.WithTxn(ctx, fs.store.DB, func(tx *sql.Tx) error {
		return store.DeleteFolder(ctx, tx, f.ID)
	})
}

// wouldCycle reports whether moving folder id under newParentID would make
// id its own ancestor, by ascending newParentID's parent_id chain looking for
// id.
func (fs *FileSystem) wouldCycle(ctx context.Context, id, newParentID string) (bool, error) {
	cur := newParentID
	for cur != "" {
		if cur == id {
			return true, nil
		}
		parentID, ok, err := store.FolderParentID(ctx, fs.store.DB, cur)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		cur = parentID
	}
	return false, nil
}

// Rename implements rename(old_parent, old_name, new_parent, new_name),
// including POSIX atomic-replacement of a pre-existing target and cycle
// rejection when moving a folder under its own descendant.
func (fs *FileSystem) Rename(op *fuseops.RenameOp) (err error) {
	defer metrics.Track("Rename", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ctx := op.Context()

	oldParentID, err := fs.parentFolderID(op.OldParent)
	if err != nil {
		return err
	}
	newParentID, err := fs.parentFolderID(op.NewParent)
	if err != nil {
		return err
	}

	r, err := fs.resolve(ctx, oldParentID, op.OldName)
	if err != nil {
		return err
	}

	var newTitle string
	if r.Ref.Kind == inode.KindNote {
		title, ok := noteCandidate(op.NewName)
		if !ok {
			return fuse.EINVAL
		}
		newTitle = title
	} else {
		newTitle = op.NewName
	}

	if r.Ref.Kind == inode.KindFolder {
		cyclic, err := fs.wouldCycle(ctx, r.Ref.ID, newParentID)
		if err != nil {
			return err
		}
		if cyclic || (newParentID == r.Ref.ID) {
			return fuse.EINVAL
		}
	}

	var replace *inode.Ref
	if target, err := fs.resolve(ctx, newParentID, op.NewName); err == nil && target.Ref != r.Ref {
		replace = &target.Ref
	} else if err != nil && err != fuse.ENOENT {
		return err
	}

	_, nowMs := fs.now()
	return store.WithTxn(ctx, fs.store.DB, func(tx *sql.Tx) error {
		if replace != nil {
			if err := fs.replaceTarget(ctx, tx, *replace); err != nil {
				return err
			}
		}
		if r.Ref.Kind == inode.KindNote {
			return store.RelocateNote(ctx, tx, r.Ref.ID, newParentID, newTitle, nowMs, nowMs)
		}
		return store.RelocateFolder(ctx, tx, r.Ref.ID, newParentID, newTitle, nowMs, nowMs)
	})
}

// replaceTarget deletes the row rename is about to overwrite, inside the same
// transaction as the rename itself, per POSIX atomic-replacement semantics. A
// non-empty directory target is rejected with ENOTEMPTY rather than silently
// replaced.
func (fs *FileSystem) replaceTarget(ctx context.Context, tx *sql.Tx, target inode.Ref) error {
	if target.Kind == inode.KindFolder {
		hasChildren, err := store.HasChildren(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if hasChildren {
			return fuse.ENOTEMPTY
		}
		return store.DeleteFolder(ctx, tx, target.ID)
	}

	return store.DeleteNote(ctx, tx, target.ID)
}
