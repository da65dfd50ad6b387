package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-code/internal/fingerprint"
)

// metadataStore implements driven.MetadataStore.
type metadataStore struct {
	store *Store
}

var _ driven.MetadataStore = (*metadataStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	workspaceColumns = "id, path, name, status, created_at"
	folderColumns    = "id, workspace_id, parent_id, path, name, created_at"
	fileColumns      = "id, workspace_id, folder_id, relative_path, name, absolute_path, size, last_indexed_at, content_hash"
	chunkColumns     = "id, file_id, workspace_id, workspace_path, content, line_start, line_end, " +
		"start_character, end_character, chunk_index, created_at"
)

// ==================== Workspaces ====================

// GetOrCreateWorkspace returns the workspace ID for path, creating it if absent.
func (m *metadataStore) GetOrCreateWorkspace(ctx context.Context, workspacePath string) (string, error) {
	db, err := m.store.conn()
	if err != nil {
		return "", err
	}
	if workspacePath == "" {
		return "", fmt.Errorf("%w: empty workspace path", domain.ErrInvalidInput)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO workspaces (id, path, name, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO NOTHING
	`, fingerprint.WorkspaceID(workspacePath), workspacePath, filepath.Base(workspacePath),
		string(domain.WorkspaceActive), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("creating workspace: %w", err)
	}

	var id string
	if err := db.QueryRowContext(ctx, "SELECT id FROM workspaces WHERE path = ?", workspacePath).Scan(&id); err != nil {
		return "", fmt.Errorf("reading workspace id: %w", err)
	}
	return id, nil
}

// GetWorkspaceByPath returns the workspace at path, or nil.
func (m *metadataStore) GetWorkspaceByPath(ctx context.Context, workspacePath string) (*domain.Workspace, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+workspaceColumns+" FROM workspaces WHERE path = ?", workspacePath)
	ws, err := scanWorkspace(row)
	if isNoRows(err) {
		return nil, nil
	}
	return ws, err
}

// ListWorkspaces returns every workspace ordered by path.
func (m *metadataStore) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT "+workspaceColumns+" FROM workspaces ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("querying workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []domain.Workspace //nolint:prealloc // size unknown from query
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspaces: %w", err)
	}
	return workspaces, nil
}

// SetWorkspaceStatus updates a workspace's lifecycle status.
func (m *metadataStore) SetWorkspaceStatus(ctx context.Context, workspaceID string, status domain.WorkspaceStatus) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: workspace status %q", domain.ErrInvalidInput, status)
	}

	res, err := db.ExecContext(ctx, "UPDATE workspaces SET status = ? WHERE id = ?", string(status), workspaceID)
	if err != nil {
		return fmt.Errorf("updating workspace status: %w", err)
	}
	if rowsAffected(res) == 0 {
		return fmt.Errorf("workspace %s: %w", workspaceID, domain.ErrNotFound)
	}
	return nil
}

// ==================== Folders ====================

// GetOrCreateFolder creates the folder and any missing ancestors, parent first.
func (m *metadataStore) GetOrCreateFolder(ctx context.Context, workspaceID, relativeFolderPath string) (string, error) {
	db, err := m.store.conn()
	if err != nil {
		return "", err
	}

	rel := normaliseRelPath(relativeFolderPath)
	if rel == "" {
		return "", nil
	}

	var folderID string
	err = withTx(ctx, db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		parentID := ""
		segments := strings.Split(rel, "/")
		for i := range segments {
			prefix := strings.Join(segments[:i+1], "/")

			_, err := tx.ExecContext(ctx, `
				INSERT INTO folders (id, workspace_id, parent_id, path, name, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(workspace_id, path) DO NOTHING
			`, fingerprint.FolderID(workspaceID, prefix), workspaceID, nullString(parentID),
				prefix, segments[i], now)
			if err != nil {
				return fmt.Errorf("creating folder %s: %w", prefix, err)
			}

			var id string
			if err := tx.QueryRowContext(ctx,
				"SELECT id FROM folders WHERE workspace_id = ? AND path = ?", workspaceID, prefix,
			).Scan(&id); err != nil {
				return fmt.Errorf("reading folder %s: %w", prefix, err)
			}
			parentID = id
		}
		folderID = parentID
		return nil
	})
	if err != nil {
		return "", err
	}
	return folderID, nil
}

// GetFolderByPath returns the folder at the relative path, or nil.
func (m *metadataStore) GetFolderByPath(ctx context.Context, workspaceID, relativeFolderPath string) (*domain.Folder, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	rel := normaliseRelPath(relativeFolderPath)
	if rel == "" {
		return nil, nil
	}

	row := db.QueryRowContext(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE workspace_id = ? AND path = ?", workspaceID, rel)
	folder, err := scanFolder(row)
	if isNoRows(err) {
		return nil, nil
	}
	return folder, err
}

// GetChildFolders lists folders directly under parentID ("" = root).
func (m *metadataStore) GetChildFolders(ctx context.Context, workspaceID, parentID string) ([]domain.Folder, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if parentID == "" {
		rows, err = db.QueryContext(ctx,
			"SELECT "+folderColumns+" FROM folders WHERE workspace_id = ? AND parent_id IS NULL ORDER BY name",
			workspaceID)
	} else {
		rows, err = db.QueryContext(ctx,
			"SELECT "+folderColumns+" FROM folders WHERE workspace_id = ? AND parent_id = ? ORDER BY name",
			workspaceID, parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying folders: %w", err)
	}
	defer rows.Close()

	var folders []domain.Folder //nolint:prealloc // size unknown from query
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, *folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating folders: %w", err)
	}
	return folders, nil
}

// ==================== Files ====================

// UpsertIndexedFile inserts or replaces a file record by ID.
func (m *metadataStore) UpsertIndexedFile(ctx context.Context, file *domain.IndexedFile) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}
	return upsertFile(ctx, db, file)
}

// ReplaceFileChunks deletes old chunks, upserts the file and inserts the
// new chunks in one transaction.
func (m *metadataStore) ReplaceFileChunks(ctx context.Context, file *domain.IndexedFile, chunks []domain.CodeChunk) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}
	if file == nil {
		return fmt.Errorf("%w: nil file", domain.ErrInvalidInput)
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", file.ID); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}

		if err := upsertFile(ctx, tx, file); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (`+chunkColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			if c.LineEnd < c.LineStart {
				return fmt.Errorf("%w: chunk %s ends before it starts", domain.ErrInvalidInput, c.ID)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, file.ID, c.WorkspaceID, c.WorkspacePath, c.Content,
				c.LineStart, c.LineEnd, nullInt(c.StartCharacter), nullInt(c.EndCharacter),
				c.Index, c.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("saving chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// GetIndexedFile returns a file by ID, or nil.
func (m *metadataStore) GetIndexedFile(ctx context.Context, fileID string) (*domain.IndexedFile, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	file, err := scanFile(db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", fileID))
	if isNoRows(err) {
		return nil, nil
	}
	return file, err
}

// GetIndexedFileByPath returns a file by absolute path, or nil.
func (m *metadataStore) GetIndexedFileByPath(ctx context.Context, absolutePath string) (*domain.IndexedFile, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	file, err := scanFile(db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE absolute_path = ? LIMIT 1", absolutePath))
	if isNoRows(err) {
		return nil, nil
	}
	return file, err
}

// ListIndexedFiles returns files of one workspace, or all when workspaceID is empty.
func (m *metadataStore) ListIndexedFiles(ctx context.Context, workspaceID string) ([]domain.IndexedFile, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	if workspaceID == "" {
		return queryFiles(ctx, db,
			"SELECT "+fileColumns+" FROM files ORDER BY workspace_id, relative_path")
	}
	return queryFiles(ctx, db,
		"SELECT "+fileColumns+" FROM files WHERE workspace_id = ? ORDER BY relative_path", workspaceID)
}

// GetFilesByFolderID lists files directly in a folder ("" = root).
func (m *metadataStore) GetFilesByFolderID(ctx context.Context, workspaceID, folderID string) ([]domain.IndexedFile, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	if folderID == "" {
		return queryFiles(ctx, db,
			"SELECT "+fileColumns+" FROM files WHERE workspace_id = ? AND folder_id IS NULL ORDER BY name",
			workspaceID)
	}
	return queryFiles(ctx, db,
		"SELECT "+fileColumns+" FROM files WHERE workspace_id = ? AND folder_id = ? ORDER BY name",
		workspaceID, folderID)
}

// GetFilesInFolder lists files at or below a relative folder path.
func (m *metadataStore) GetFilesInFolder(ctx context.Context, workspaceID, relativeFolderPath string) ([]domain.IndexedFile, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	rel := normaliseRelPath(relativeFolderPath)
	if rel == "" {
		return queryFiles(ctx, db,
			"SELECT "+fileColumns+" FROM files WHERE workspace_id = ? ORDER BY relative_path", workspaceID)
	}
	return queryFiles(ctx, db, "SELECT "+fileColumns+` FROM files
		WHERE workspace_id = ? AND relative_path LIKE ? ESCAPE '\'
		ORDER BY relative_path`, workspaceID, likePrefix(rel))
}

// ==================== Chunks ====================

// GetChunksForFile returns a file's chunks ordered by index then line.
func (m *metadataStore) GetChunksForFile(ctx context.Context, fileID string) ([]domain.CodeChunk, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE file_id = ? ORDER BY chunk_index, line_start", fileID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.CodeChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk returns a chunk by ID, or nil.
func (m *metadataStore) GetChunk(ctx context.Context, chunkID string) (*domain.CodeChunk, error) {
	db, err := m.store.conn()
	if err != nil {
		return nil, err
	}

	chunk, err := scanChunk(db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", chunkID))
	if isNoRows(err) {
		return nil, nil
	}
	return chunk, err
}

// ==================== Deletes ====================

// DeleteFileChunks removes all chunks of a file.
func (m *metadataStore) DeleteFileChunks(ctx context.Context, fileID string) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteIndexedFile removes a file's chunks, then the file.
func (m *metadataStore) DeleteIndexedFile(ctx context.Context, fileID string) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}
		return nil
	})
}

// DeleteFolderIndex removes chunks, files and folders at or below a folder.
// The workspace root ("") clears the whole workspace but keeps its row.
func (m *metadataStore) DeleteFolderIndex(ctx context.Context, workspaceID, relativeFolderPath string) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}

	rel := normaliseRelPath(relativeFolderPath)
	return withTx(ctx, db, func(tx *sql.Tx) error {
		if rel == "" {
			return clearWorkspace(ctx, tx, workspaceID)
		}

		prefix := likePrefix(rel)
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM chunks WHERE file_id IN (
				SELECT id FROM files WHERE workspace_id = ? AND relative_path LIKE ? ESCAPE '\'
			)
		`, workspaceID, prefix); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM files WHERE workspace_id = ? AND relative_path LIKE ? ESCAPE '\'`,
			workspaceID, prefix); err != nil {
			return fmt.Errorf("deleting files: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM folders WHERE workspace_id = ? AND (path = ? OR path LIKE ? ESCAPE '\')`,
			workspaceID, rel, prefix); err != nil {
			return fmt.Errorf("deleting folders: %w", err)
		}
		return nil
	})
}

// DeleteWorkspaceIndex removes chunks, files, folders and the workspace row.
func (m *metadataStore) DeleteWorkspaceIndex(ctx context.Context, workspacePath string) error {
	db, err := m.store.conn()
	if err != nil {
		return err
	}

	var workspaceID string
	err = db.QueryRowContext(ctx, "SELECT id FROM workspaces WHERE path = ?", workspacePath).Scan(&workspaceID)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading workspace: %w", err)
	}

	return withTx(ctx, db, func(tx *sql.Tx) error {
		if err := clearWorkspace(ctx, tx, workspaceID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", workspaceID); err != nil {
			return fmt.Errorf("deleting workspace: %w", err)
		}
		return nil
	})
}

// ==================== Counts ====================

// CountChunksForFile returns the chunk count of one file.
func (m *metadataStore) CountChunksForFile(ctx context.Context, fileID string) (int, error) {
	return m.count(ctx, "SELECT COUNT(*) FROM chunks WHERE file_id = ?", fileID)
}

// CountChunksForWorkspace returns the chunk count of one workspace.
func (m *metadataStore) CountChunksForWorkspace(ctx context.Context, workspaceID string) (int, error) {
	return m.count(ctx, "SELECT COUNT(*) FROM chunks WHERE workspace_id = ?", workspaceID)
}

// CountChunks returns the total chunk count.
func (m *metadataStore) CountChunks(ctx context.Context) (int, error) {
	return m.count(ctx, "SELECT COUNT(*) FROM chunks")
}

func (m *metadataStore) count(ctx context.Context, query string, args ...any) (int, error) {
	db, err := m.store.conn()
	if err != nil {
		return 0, err
	}

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// ==================== Helpers ====================

// clearWorkspace deletes a workspace's chunks, files and folders in that order.
func clearWorkspace(ctx context.Context, q querier, workspaceID string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM chunks WHERE workspace_id = ?", workspaceID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM files WHERE workspace_id = ?", workspaceID); err != nil {
		return fmt.Errorf("deleting files: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM folders WHERE workspace_id = ?", workspaceID); err != nil {
		return fmt.Errorf("deleting folders: %w", err)
	}
	return nil
}

func upsertFile(ctx context.Context, q querier, file *domain.IndexedFile) error {
	rel := normaliseRelPath(file.RelativePath)
	name := file.Name
	if name == "" {
		name = path.Base(rel)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder_id = excluded.folder_id,
			relative_path = excluded.relative_path,
			name = excluded.name,
			absolute_path = excluded.absolute_path,
			size = excluded.size,
			last_indexed_at = excluded.last_indexed_at,
			content_hash = excluded.content_hash
	`, file.ID, file.WorkspaceID, nullString(file.FolderID), rel, name, file.AbsolutePath,
		nullInt(file.Size), file.LastIndexedAt.UTC(), file.ContentHash)
	if err != nil {
		return fmt.Errorf("saving file: %w", err)
	}
	return nil
}

func queryFiles(ctx context.Context, q querier, query string, args ...any) ([]domain.IndexedFile, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []domain.IndexedFile //nolint:prealloc // size unknown from query
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return files, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row scanner) (*domain.Workspace, error) {
	var ws domain.Workspace
	var status string
	if err := row.Scan(&ws.ID, &ws.Path, &ws.Name, &status, &ws.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}
	ws.Status = domain.WorkspaceStatus(status)
	return &ws, nil
}

func scanFolder(row scanner) (*domain.Folder, error) {
	var folder domain.Folder
	var parentID sql.NullString
	if err := row.Scan(&folder.ID, &folder.WorkspaceID, &parentID, &folder.Path,
		&folder.Name, &folder.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning folder: %w", err)
	}
	folder.ParentID = parentID.String
	return &folder, nil
}

func scanFile(row scanner) (*domain.IndexedFile, error) {
	var file domain.IndexedFile
	var folderID sql.NullString
	var size sql.NullInt64
	if err := row.Scan(&file.ID, &file.WorkspaceID, &folderID, &file.RelativePath, &file.Name,
		&file.AbsolutePath, &size, &file.LastIndexedAt, &file.ContentHash); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	file.FolderID = folderID.String
	if size.Valid {
		file.Size = &size.Int64
	}
	return &file, nil
}

func scanChunk(row scanner) (*domain.CodeChunk, error) {
	var chunk domain.CodeChunk
	var startChar, endChar sql.NullInt64
	if err := row.Scan(&chunk.ID, &chunk.FileID, &chunk.WorkspaceID, &chunk.WorkspacePath,
		&chunk.Content, &chunk.LineStart, &chunk.LineEnd, &startChar, &endChar,
		&chunk.Index, &chunk.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	if startChar.Valid {
		v := int(startChar.Int64)
		chunk.StartCharacter = &v
	}
	if endChar.Valid {
		v := int(endChar.Int64)
		chunk.EndCharacter = &v
	}
	return &chunk, nil
}
