package fs

import (
	"context"

	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/inode"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/store"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
)

// rootAttributes describes the synthetic root directory, which has no
// backing row.
func (fs *FileSystem) rootAttributes() fuseops.InodeAttributes {
	now := fs.clock.Now()
	return fuseops.InodeAttributes{
		Nlink: 1,
		Mode:  dirMode,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

// attributesForRef projects a folder or note row into the attributes the
// kernel expects, resolving it fresh from the store so that attribute
// requests always reflect the most recently committed row.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) attributesForRef(ctx context.Context, ref inode.Ref) (fuseops.InodeAttributes, error) {
	switch ref.Kind {
	case inode.KindFolder:
		f, err := store.GetFolder(ctx, fs.store.DB, ref.ID)
		if store.IsNotFound(err) {
			return fuseops.InodeAttributes{}, fuse.ENOENT
		}
		if err != nil {
			return fuseops.InodeAttributes{}, err
		}
		return fuseops.InodeAttributes{
			Nlink: 2,
			Mode:  dirMode,
			Uid:   fs.uid,
			Gid:   fs.gid,
			Atime:  millisToTime(f.UpdatedTime),
			Mtime:  millisToTime(f.UpdatedTime),
			Ctime:  millisToTime(f.UpdatedTime),
			Crtime: millisToTime(f.CreatedTime),
		}, nil

	case inode.KindNote:
		n, err := store.GetNote(ctx, fs.store.DB, ref.ID)
		if store.IsNotFound(err) {
			return fuseops.InodeAttributes{}, fuse.ENOENT
		}
		if err != nil {
			return fuseops.InodeAttributes{}, err
		}
		size := uint64(len(n.Body))
		if buf, ok := fs.writeBufs[fs.inodes.Intern(ref)]; ok {
			size = uint64(buf.Len())
		}
		return fuseops.InodeAttributes{
			Nlink: 1,
			Size:  size,
			Mode:  fileMode,
			Uid:   fs.uid,
			Gid:   fs.gid,
			Atime:  millisToTime(n.UpdatedTime),
			Mtime:  millisToTime(n.UpdatedTime),
			Ctime:  millisToTime(n.UpdatedTime),
			Crtime: millisToTime(n.CreatedTime),
		}, nil
	}

	return fuseops.InodeAttributes{}, fuse.EIO
}

func (fs *FileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Inode == inode.Root {
		op.Attributes = fs.rootAttributes()
		return nil
	}

	ref, ok := fs.inodes.Resolve(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	attrs, err := fs.attributesForRef(op.Context(), ref)
	if err != nil {
		return err
	}
	op.Attributes = attrs
	return nil
}

// SetInodeAttributes only supports truncation via O_TRUNC/ftruncate; chmod
// and utimes requests are silently accepted without effect, since the store
// has no columns to hold them.
func (fs *FileSystem) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if op.Inode == inode.Root {
		op.Attributes = fs.rootAttributes()
		return nil
	}

	ref, ok := fs.inodes.Resolve(op.Inode)
	if !ok {
		return fuse.ENOENT
	}

	if op.Size != nil && ref.Kind == inode.KindNote {
		buf, err := fs.loadWriteBuffer(op.Context(), op.Inode, ref)
		if err != nil {
			return err
		}
		buf.Truncate(int64(*op.Size))
	}

	attrs, err := fs.attributesForRef(op.Context(), ref)
	if err != nil {
		return err
	}
	op.Attributes = attrs
	return nil
}

func (fs *FileSystem) ForgetInode(op *fuseops.ForgetInodeOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.inodes.Forget(op.Inode)
	return nil
}
