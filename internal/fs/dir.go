package fs

import (
	"context"
	"sort"
	"time"

	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/inode"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/metrics"
	"github.com/RyanGreenup/joplin-sqlite-fuse/internal/store"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
)

// dirHandle buffers one full, deduplicated listing per open, rather than
// re-querying and re-deduplicating on every ReadDir call. SQLite has no
// equivalent of a remote listing cursor going stale mid-read, so unlike a
// cloud-object file system there is no correctness reason to re-list
// incrementally; buffering the whole thing keeps offsets stable across calls.
type dirHandle struct {
	entries []fuseops.Dirent
}

// listDir implements the Directory Lister: "." and ".." first, then live
// folders, then live notes, deduplicated by exposed name with the
// collision-winner / folder-wins-on-tie rule, in stable name order.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) listDir(ctx context.Context, self fuseops.InodeID, parentOfSelf fuseops.InodeID, folderID string) ([]fuseops.Dirent, error) {
	type candidate struct {
		name       string
		ref        inode.Ref
		userUpdate int64
		isDir      bool
	}

	byName := make(map[string]candidate)

	folders, err := store.ListFolders(ctx, fs.store.DB, folderID)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		c := candidate{name: f.Title, ref: inode.Ref{Kind: inode.KindFolder, ID: f.ID}, userUpdate: f.UserUpdatedTime, isDir: true}
		if existing, ok := byName[c.name]; !ok || c.userUpdate > existing.userUpdate {
			byName[c.name] = c
		}
	}

	notes, err := store.ListNotes(ctx, fs.store.DB, folderID)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		c := candidate{name: noteExposedName(n.Title), ref: inode.Ref{Kind: inode.KindNote, ID: n.ID}, userUpdate: n.UserUpdatedTime}
		existing, ok := byName[c.name]
		if !ok {
			byName[c.name] = c
			continue
		}
		// Cross-kind collision: folder always wins, regardless of times.
		if existing.isDir {
			continue
		}
		if c.userUpdate > existing.userUpdate {
			byName[c.name] = c
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]fuseops.Dirent, 0, len(names)+2)
	entries = append(entries,
		fuseops.Dirent{Offset: 1, Inode: self, Name: ".", Type: fuseops.DT_Directory},
		fuseops.Dirent{Offset: 2, Inode: parentOfSelf, Name: "..", Type: fuseops.DT_Directory},
	)
	for i, name := range names {
		c := byName[name]
		id := fs.inodes.Intern(c.ref)
		typ := fuseops.DT_File
		if c.isDir {
			typ = fuseops.DT_Directory
		}
		entries = append(entries, fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 3),
			Inode:  id,
			Name:   name,
			Type:   typ,
		})
	}

	return entries, nil
}

func (fs *FileSystem) OpenDir(op *fuseops.OpenDirOp) (err error) {
	defer metrics.Track("OpenDir", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	ctx := op.Context()

	var folderID string
	var parentOfSelf fuseops.InodeID = inode.Root
	if op.Inode == inode.Root {
		folderID = ""
	} else {
		ref, ok := fs.inodes.Resolve(op.Inode)
		if !ok {
			return fuse.ENOENT
		}
		if ref.Kind != inode.KindFolder {
			return fuse.ENOTDIR
		}
		folderID = ref.ID

		if gotParentID, ok, err := store.FolderParentID(ctx, fs.store.DB, ref.ID); err != nil {
			return err
		} else if ok {
			if gotParentID == "" {
				parentOfSelf = inode.Root
			} else {
				parentOfSelf = fs.inodes.Intern(inode.Ref{Kind: inode.KindFolder, ID: gotParentID})
			}
		}
	}

	entries, err := fs.listDir(ctx, op.Inode, parentOfSelf, folderID)
	if err != nil {
		return err
	}

	handle := fs.nextHandle
	fs.nextHandle++
	fs.handles[handle] = &dirHandle{entries: entries}
	op.Handle = handle
	return nil
}

func (fs *FileSystem) ReadDir(op *fuseops.ReadDirOp) (err error) {
	defer metrics.Track("ReadDir", time.Now())(&err)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dh, ok := fs.handles[op.Handle]
	if !ok {
		return fuse.EIO
	}

	index := int(op.Offset)
	if index > len(dh.entries) {
		index = len(dh.entries)
	}

	for i := index; i < len(dh.entries); i++ {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], dh.entries[i])
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.handles, op.Handle)
	return nil
}
