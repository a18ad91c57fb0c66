package store

import (
	"context"
	"database/sql"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx, letting the lookup
// helpers below run either against the ambient connection (reads outside a
// transaction, e.g. a plain lookup) or inside one (mutations).
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Note mirrors the subset of the notes table this adapter reads and writes.
type Note struct {
	ID              string
	ParentID        string
	Title           string
	Body            string
	CreatedTime     int64
	UpdatedTime     int64
	UserUpdatedTime int64
}

// Folder mirrors the subset of the folders table this adapter reads and
// writes.
type Folder struct {
	ID              string
	ParentID        string
	Title           string
	CreatedTime     int64
	UpdatedTime     int64
	UserUpdatedTime int64
}

const folderCols = `id, parent_id, title, created_time, updated_time, user_updated_time`
const noteCols = `id, parent_id, title, body, created_time, updated_time, user_updated_time`

func scanFolder(row *sql.Row) (*Folder, error) {
	var f Folder
	if err := row.Scan(&f.ID, &f.ParentID, &f.Title, &f.CreatedTime, &f.UpdatedTime, &f.UserUpdatedTime); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanNote(row *sql.Row) (*Note, error) {
	var n Note
	if err := row.Scan(&n.ID, &n.ParentID, &n.Title, &n.Body, &n.CreatedTime, &n.UpdatedTime, &n.UserUpdatedTime); err != nil {
		return nil, err
	}
	return &n, nil
}

// LookupFolder returns the live folder named title directly under parentID,
// breaking ties among same-named rows by greatest user_updated_time (the
// collision-winner rule). Returns sql.ErrNoRows if none exists.
func LookupFolder(ctx context.Context, q Queryer, parentID, title string) (*Folder, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+folderCols+` FROM folders
		WHERE parent_id = ? AND title = ? AND deleted_time = 0
		ORDER BY user_updated_time DESC LIMIT 1`, parentID, title)
	return scanFolder(row)
}

// LookupNote returns the live note titled title directly under parentID,
// same collision rule as LookupFolder.
func LookupNote(ctx context.Context, q Queryer, parentID, title string) (*Note, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+noteCols+` FROM notes
		WHERE parent_id = ? AND title = ? AND deleted_time = 0
		ORDER BY user_updated_time DESC LIMIT 1`, parentID, title)
	return scanNote(row)
}

// GetFolder fetches a live folder by id.
func GetFolder(ctx context.Context, q Queryer, id string) (*Folder, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+folderCols+` FROM folders WHERE id = ? AND deleted_time = 0`, id)
	return scanFolder(row)
}

// GetNote fetches a live note by id.
func GetNote(ctx context.Context, q Queryer, id string) (*Note, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+noteCols+` FROM notes WHERE id = ? AND deleted_time = 0`, id)
	return scanNote(row)
}

// ListFolders returns every live folder directly under parentID, ordered by
// title so that a deduplicating caller sees collision groups contiguously.
func ListFolders(ctx context.Context, q Queryer, parentID string) ([]Folder, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+folderCols+` FROM folders
		WHERE parent_id = ? AND deleted_time = 0
		ORDER BY title, user_updated_time DESC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.ParentID, &f.Title, &f.CreatedTime, &f.UpdatedTime, &f.UserUpdatedTime); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListNotes returns every live note directly under parentID, ordered by
// title for the same reason as ListFolders.
func ListNotes(ctx context.Context, q Queryer, parentID string) ([]Note, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+noteCols+` FROM notes
		WHERE parent_id = ? AND deleted_time = 0
		ORDER BY title, user_updated_time DESC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Title, &n.Body, &n.CreatedTime, &n.UpdatedTime, &n.UserUpdatedTime); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// InsertNote creates a new note row, relying on table defaults for every
// column this adapter does not own.
func InsertNote(ctx context.Context, q Queryer, n Note) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO notes (id, parent_id, title, body, created_time, updated_time, user_updated_time, deleted_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		n.ID, n.ParentID, n.Title, n.Body, n.CreatedTime, n.UpdatedTime, n.UserUpdatedTime)
	return err
}

// InsertFolder creates a new folder row.
func InsertFolder(ctx context.Context, q Queryer, f Folder) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO folders (id, parent_id, title, created_time, updated_time, user_updated_time, deleted_time)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		f.ID, f.ParentID, f.Title, f.CreatedTime, f.UpdatedTime, f.UserUpdatedTime)
	return err
}

// UpdateNoteBody persists a flushed write buffer.
func UpdateNoteBody(ctx context.Context, q Queryer, id, body string, updatedTime, userUpdatedTime int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE notes SET body = ?, updated_time = ?, user_updated_time = ? WHERE id = ?`,
		body, updatedTime, userUpdatedTime, id)
	return err
}

// RelocateNote applies a rename's new parent/title to a note row.
func RelocateNote(ctx context.Context, q Queryer, id, parentID, title string, updatedTime, userUpdatedTime int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE notes SET parent_id = ?, title = ?, updated_time = ?, user_updated_time = ? WHERE id = ?`,
		parentID, title, updatedTime, userUpdatedTime, id)
	return err
}

// RelocateFolder applies a rename's new parent/title to a folder row.
func RelocateFolder(ctx context.Context, q Queryer, id, parentID, title string, updatedTime, userUpdatedTime int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE folders SET parent_id = ?, title = ?, updated_time = ?, user_updated_time = ? WHERE id = ?`,
		parentID, title, updatedTime, userUpdatedTime, id)
	return err
}

// DeleteNote hard-deletes a note row.
func DeleteNote(ctx context.Context, q Queryer, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	return err
}

// DeleteFolder hard-deletes a folder row.
func DeleteFolder(ctx context.Context, q Queryer, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	return err
}

// HasChildren reports whether folderID has any live note or folder directly
// beneath it, used by rmdir's ENOTEMPTY check.
func HasChildren(ctx context.Context, q Queryer, folderID string) (bool, error) {
	var n int
	row := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM folders WHERE parent_id = ? AND deleted_time = 0) +
			(SELECT COUNT(*) FROM notes WHERE parent_id = ? AND deleted_time = 0)`,
		folderID, folderID)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// FolderParentID returns the parent_id of the live folder id, and false if
// the folder does not exist (treated as "reached the top" by cycle checks).
func FolderParentID(ctx context.Context, q Queryer, id string) (string, bool, error) {
	var parentID string
	row := q.QueryRowContext(ctx, `SELECT parent_id FROM folders WHERE id = ? AND deleted_time = 0`, id)
	err := row.Scan(&parentID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return parentID, true, nil
}
