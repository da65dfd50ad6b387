package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-code/internal/fingerprint"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/pathmatch"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// IndexingService keeps the metadata store and vector index in sync with
// source files. Files are processed one at a time; a run never overlaps
// another run.
type IndexingService struct {
	metadata driven.MetadataStore
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	chunker  driven.Chunker
	settings domain.IndexingSettings
	log      *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	indexing bool

	subsMu  sync.Mutex
	subs    map[int]chan domain.IndexEvent
	nextSub int
}

// NewIndexingService creates a new indexing service. The embedder may be
// nil, in which case runs fail with domain.ErrEmbeddingUnavailable while
// deletes and index listings keep working.
func NewIndexingService(
	metadata driven.MetadataStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	chunker driven.Chunker,
	settings domain.IndexingSettings,
	log *logger.Logger,
) *IndexingService {
	if log == nil {
		log = logger.Nop()
	}
	return &IndexingService{
		metadata: metadata,
		vectors:  vectors,
		embedder: embedder,
		chunker:  chunker,
		settings: settings.Normalised(),
		log:      log,
		now:      time.Now,
		subs:     make(map[int]chan domain.IndexEvent),
	}
}

// IndexWorkspace walks workspaceRoot and (re)indexes every matching file.
// Index entries whose file vanished or is now excluded are pruned.
func (s *IndexingService) IndexWorkspace(
	ctx context.Context, workspaceRoot string, progress driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	return s.indexTree(ctx, workspaceRoot, "", progress)
}

// IndexFolder (re)indexes every matching file at or below folder, a path
// relative to workspaceRoot.
func (s *IndexingService) IndexFolder(
	ctx context.Context, workspaceRoot, folder string, progress driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	rel, err := normaliseFolder(folder)
	if err != nil {
		return nil, err
	}
	return s.indexTree(ctx, workspaceRoot, rel, progress)
}

// IndexFiles (re)indexes an explicit list of files. Paths may be absolute
// or relative to workspaceRoot. Include/exclude patterns are not applied:
// an explicitly named file is always indexed.
func (s *IndexingService) IndexFiles(
	ctx context.Context, paths []string, workspaceRoot string, progress driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	root, err := resolveWorkspaceRoot(workspaceRoot)
	if err != nil {
		return nil, err
	}
	if err := s.readyToIndex(root); err != nil {
		return nil, err
	}
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	result := s.newResult(root)
	ws, err := s.openWorkspace(ctx, root, result.RunID)
	if err != nil {
		return nil, err
	}
	defer s.closeWorkspace(ctx, ws, result.RunID)

	targets := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		_, rel, err := relativeTo(root, p)
		if err != nil {
			result.Failures = append(result.Failures, &domain.FileError{Path: p, Err: err})
			result.Failed++
			result.Total++
			continue
		}
		if !seen[rel] {
			seen[rel] = true
			targets = append(targets, rel)
		}
	}

	s.runFiles(ctx, ws, targets, result, progress)
	return s.finish(result), nil
}

// indexTree runs a walk-based indexing pass over root/folder.
func (s *IndexingService) indexTree(
	ctx context.Context, workspaceRoot, folder string, progress driving.ProgressFunc,
) (*domain.IndexRunResult, error) {
	root, err := resolveWorkspaceRoot(workspaceRoot)
	if err != nil {
		return nil, err
	}
	if err := s.readyToIndex(root); err != nil {
		return nil, err
	}
	matcher, err := pathmatch.New(s.settings.IncludePatterns, s.settings.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	s.log.Section("Indexing")
	s.log.Info("Workspace: %s", root)
	if folder != "" {
		s.log.Info("Folder: %s", folder)
	}

	result := s.newResult(root)
	ws, err := s.openWorkspace(ctx, root, result.RunID)
	if err != nil {
		return nil, err
	}

	files, err := walkWorkspace(ctx, root, folder, matcher, s.log)
	if err != nil {
		if isCancellation(err) {
			result.Cancelled = true
			s.closeWorkspace(ctx, ws, result.RunID)
			return s.finish(result), nil
		}
		s.setStatus(context.WithoutCancel(ctx), ws, domain.WorkspaceError, result.RunID)
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	s.log.Info("Found %d candidate files", len(files))

	s.runFiles(ctx, ws, files, result, progress)
	if !result.Cancelled {
		s.prune(ctx, ws, folder, files, result)
	}

	s.closeWorkspace(ctx, ws, result.RunID)
	return s.finish(result), nil
}

// workspaceRun carries per-run workspace identity.
type workspaceRun struct {
	id   string
	path string
}

func (s *IndexingService) openWorkspace(ctx context.Context, root, runID string) (*workspaceRun, error) {
	id, err := s.metadata.GetOrCreateWorkspace(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", root, err)
	}
	ws := &workspaceRun{id: id, path: root}
	s.setStatus(ctx, ws, domain.WorkspaceIndexing, runID)
	return ws, nil
}

func (s *IndexingService) closeWorkspace(ctx context.Context, ws *workspaceRun, runID string) {
	s.setStatus(context.WithoutCancel(ctx), ws, domain.WorkspaceActive, runID)
}

func (s *IndexingService) setStatus(
	ctx context.Context, ws *workspaceRun, status domain.WorkspaceStatus, runID string,
) {
	if err := s.metadata.SetWorkspaceStatus(ctx, ws.id, status); err != nil {
		s.log.Warn("Failed to set workspace %s status to %s: %v", ws.path, status, err)
		return
	}
	s.publish(domain.IndexEvent{
		Type:          domain.EventWorkspaceStatus,
		RunID:         runID,
		WorkspacePath: ws.path,
		Status:        status,
	})
}

func (s *IndexingService) newResult(root string) *domain.IndexRunResult {
	result := &domain.IndexRunResult{
		RunID:         uuid.NewString(),
		WorkspacePath: root,
	}
	s.publish(domain.IndexEvent{
		Type:          domain.EventRunStarted,
		RunID:         result.RunID,
		WorkspacePath: root,
	})
	return result
}

func (s *IndexingService) finish(result *domain.IndexRunResult) *domain.IndexRunResult {
	s.log.Info("Run %s: %d indexed, %d skipped, %d failed, %d removed, %d chunks",
		result.RunID, result.Indexed, result.Skipped, result.Failed, result.Removed, result.Chunks)
	s.publish(domain.IndexEvent{
		Type:          domain.EventRunFinished,
		RunID:         result.RunID,
		WorkspacePath: result.WorkspacePath,
		Progress: domain.IndexProgress{
			Processed: result.Indexed + result.Skipped + result.Failed,
			Total:     result.Total,
		},
	})
	return result
}

// runFiles processes files sequentially. Cancellation is observed only
// between files; a started file always runs to completion.
func (s *IndexingService) runFiles(
	ctx context.Context,
	ws *workspaceRun,
	files []string,
	result *domain.IndexRunResult,
	progress driving.ProgressFunc,
) {
	start := s.now()
	result.Total += len(files)
	processed := result.Failed

	for _, rel := range files {
		if ctx.Err() != nil {
			result.Cancelled = true
			s.log.Info("Run %s cancelled after %d files", result.RunID, processed)
			break
		}

		outcome, chunks, err := s.indexFile(context.WithoutCancel(ctx), ws, rel)
		switch outcome {
		case domain.FileIndexed:
			result.Indexed++
			result.Chunks += chunks
		case domain.FileSkipped:
			result.Skipped++
		case domain.FileFailed:
			result.Failed++
			result.Failures = append(result.Failures, &domain.FileError{Path: rel, Err: err})
			s.log.Warn("Failed to index %s: %v", rel, err)
		}
		processed++

		p := domain.IndexProgress{Processed: processed, Total: result.Total, CurrentPath: rel}
		if progress != nil {
			progress(p)
		}
		event := domain.IndexEvent{
			Type:          domain.EventFileProcessed,
			RunID:         result.RunID,
			WorkspacePath: ws.path,
			Path:          rel,
			Progress:      p,
			Outcome:       outcome,
		}
		if outcome == domain.FileFailed {
			event.Type = domain.EventFileFailed
			event.Err = err
		}
		s.publish(event)
	}

	result.Duration += s.now().Sub(start)
}

// indexFile brings one file's index up to date. An unchanged content hash
// short-circuits with no writes. On failure the file keeps its previous
// index, or has none if the vector write failed after the metadata write.
func (s *IndexingService) indexFile(
	ctx context.Context, ws *workspaceRun, rel string,
) (domain.FileOutcome, int, error) {
	abs := filepath.Join(ws.path, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		return domain.FileFailed, 0, fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return domain.FileFailed, 0, errNotRegular
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return domain.FileFailed, 0, fmt.Errorf("read: %w", err)
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0 {
		return domain.FileFailed, 0, fmt.Errorf("%w: binary content", domain.ErrInvalidInput)
	}

	fileID := fingerprint.FileID(ws.path, rel)
	hash := fingerprint.ContentHash(data)

	existing, err := s.metadata.GetIndexedFile(ctx, fileID)
	if err != nil {
		return domain.FileFailed, 0, fmt.Errorf("lookup: %w", err)
	}
	if existing != nil && existing.ContentHash == hash {
		s.log.Debug("Unchanged: %s", rel)
		return domain.FileSkipped, 0, nil
	}

	content := string(data)
	spans := s.chunker.Chunk(ctx, content, s.settings.ChunkMaxTokens, s.settings.ChunkOverlapTokens)

	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}
	embeddings, err := embedDocuments(ctx, s.embedder, rel, texts)
	if err != nil {
		return domain.FileFailed, 0, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(spans) {
		return domain.FileFailed, 0, fmt.Errorf("%w: %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(embeddings), len(spans))
	}

	folderID, err := s.metadata.GetOrCreateFolder(ctx, ws.id, path.Dir(rel))
	if err != nil {
		return domain.FileFailed, 0, fmt.Errorf("folder: %w", err)
	}

	now := s.now().UTC()
	size := info.Size()
	file := &domain.IndexedFile{
		ID:            fileID,
		WorkspaceID:   ws.id,
		FolderID:      folderID,
		RelativePath:  rel,
		Name:          path.Base(rel),
		AbsolutePath:  abs,
		Size:          &size,
		LastIndexedAt: now,
		ContentHash:   hash,
	}

	chunks := make([]domain.CodeChunk, len(spans))
	records := make([]driven.VectorRecord, len(spans))
	for i, span := range spans {
		chunkID := fingerprint.ChunkID(fileID, span.LineStart, span.LineEnd)
		chunks[i] = domain.CodeChunk{
			ID:            chunkID,
			FileID:        fileID,
			WorkspaceID:   ws.id,
			WorkspacePath: ws.path,
			Content:       span.Text,
			LineStart:     span.LineStart,
			LineEnd:       span.LineEnd,
			Index:         i,
			CreatedAt:     now,
			Embedding:     embeddings[i],
		}
		records[i] = driven.VectorRecord{
			ChunkID:       chunkID,
			FileID:        fileID,
			WorkspaceID:   ws.id,
			WorkspacePath: ws.path,
			Embedding:     embeddings[i],
		}
	}

	if err := s.metadata.ReplaceFileChunks(ctx, file, chunks); err != nil {
		return domain.FileFailed, 0, fmt.Errorf("store chunks: %w", err)
	}
	if err := s.replaceVectors(ctx, fileID, records); err != nil {
		// Forget the file so the next run re-embeds it.
		if derr := s.metadata.DeleteIndexedFile(ctx, fileID); derr != nil {
			s.log.Warn("Failed to roll back %s: %v", rel, derr)
		}
		return domain.FileFailed, 0, fmt.Errorf("store vectors: %w", err)
	}

	s.log.Debug("Indexed %s: %d chunks", rel, len(chunks))
	return domain.FileIndexed, len(chunks), nil
}

func (s *IndexingService) replaceVectors(ctx context.Context, fileID string, records []driven.VectorRecord) error {
	if _, err := s.vectors.DeleteWhere(ctx, driven.VectorFilter{FileID: fileID}); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.vectors.Upsert(ctx, records...); err != nil {
		_, _ = s.vectors.DeleteWhere(ctx, driven.VectorFilter{FileID: fileID})
		return err
	}
	return nil
}

// prune removes index entries under folder whose file was not produced by
// the walk.
func (s *IndexingService) prune(
	ctx context.Context, ws *workspaceRun, folder string, walked []string, result *domain.IndexRunResult,
) {
	keep := make(map[string]bool, len(walked))
	for _, rel := range walked {
		keep[rel] = true
	}

	files, err := s.metadata.GetFilesInFolder(ctx, ws.id, folder)
	if err != nil {
		s.log.Warn("Failed to list indexed files for pruning: %v", err)
		return
	}
	for i := range files {
		if keep[files[i].RelativePath] {
			continue
		}
		if err := s.deleteFile(ctx, &files[i]); err != nil {
			s.log.Warn("Failed to prune %s: %v", files[i].RelativePath, err)
			continue
		}
		s.log.Debug("Pruned %s", files[i].RelativePath)
		result.Removed++
	}
}

// DeleteFileIndex removes a file's vectors, chunks and record.
// Unknown paths are a no-op.
func (s *IndexingService) DeleteFileIndex(ctx context.Context, filePath string) error {
	if err := s.ready(); err != nil {
		return err
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	file, err := s.metadata.GetIndexedFileByPath(ctx, filepath.Clean(abs))
	if err != nil {
		return fmt.Errorf("lookup %s: %w", abs, err)
	}
	if file == nil {
		return nil
	}
	if err := s.deleteFile(ctx, file); err != nil {
		return err
	}

	s.log.Debug("Deleted index for %s", file.AbsolutePath)
	s.publish(domain.IndexEvent{
		Type:          domain.EventIndexDeleted,
		WorkspacePath: s.workspacePathOf(ctx, file),
		Path:          file.RelativePath,
	})
	return nil
}

func (s *IndexingService) deleteFile(ctx context.Context, file *domain.IndexedFile) error {
	if _, err := s.vectors.DeleteWhere(ctx, driven.VectorFilter{FileID: file.ID}); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", file.RelativePath, err)
	}
	if err := s.metadata.DeleteIndexedFile(ctx, file.ID); err != nil {
		return fmt.Errorf("delete %s: %w", file.RelativePath, err)
	}
	return nil
}

// DeleteFolderIndex removes everything indexed at or below folder.
// Unknown workspaces are a no-op.
func (s *IndexingService) DeleteFolderIndex(ctx context.Context, workspaceRoot, folder string) error {
	root, err := resolveWorkspaceRoot(workspaceRoot)
	if err != nil {
		return err
	}
	rel, err := normaliseFolder(folder)
	if err != nil {
		return err
	}
	if rel == "" {
		return s.DeleteWorkspaceIndex(ctx, root)
	}
	if err := s.ready(); err != nil {
		return err
	}

	ws, err := s.metadata.GetWorkspaceByPath(ctx, root)
	if err != nil {
		return fmt.Errorf("lookup workspace %s: %w", root, err)
	}
	if ws == nil {
		return nil
	}

	files, err := s.metadata.GetFilesInFolder(ctx, ws.ID, rel)
	if err != nil {
		return fmt.Errorf("list files in %s: %w", rel, err)
	}
	for i := range files {
		if _, err := s.vectors.DeleteWhere(ctx, driven.VectorFilter{FileID: files[i].ID}); err != nil {
			return fmt.Errorf("delete vectors for %s: %w", files[i].RelativePath, err)
		}
	}
	if err := s.metadata.DeleteFolderIndex(ctx, ws.ID, rel); err != nil {
		return fmt.Errorf("delete folder %s: %w", rel, err)
	}

	s.log.Info("Deleted index for %s/%s (%d files)", root, rel, len(files))
	s.publish(domain.IndexEvent{Type: domain.EventIndexDeleted, WorkspacePath: root, Path: rel})
	return nil
}

// DeleteWorkspaceIndex removes every vector, chunk, file, folder and the
// workspace row. Unknown workspaces are a no-op.
func (s *IndexingService) DeleteWorkspaceIndex(ctx context.Context, workspaceRoot string) error {
	root, err := resolveWorkspaceRoot(workspaceRoot)
	if err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	n, err := s.vectors.DeleteWhere(ctx, driven.VectorFilter{WorkspacePath: root})
	if err != nil {
		return fmt.Errorf("delete vectors for %s: %w", root, err)
	}
	if err := s.metadata.DeleteWorkspaceIndex(ctx, root); err != nil {
		return fmt.Errorf("delete workspace %s: %w", root, err)
	}

	s.log.Info("Deleted index for %s (%d vectors)", root, n)
	s.publish(domain.IndexEvent{Type: domain.EventIndexDeleted, WorkspacePath: root})
	return nil
}

// GetIndexEntries lists indexed files with staleness computed from the
// current disk content. An empty workspaceRoot lists every workspace.
func (s *IndexingService) GetIndexEntries(ctx context.Context, workspaceRoot string) ([]domain.IndexEntry, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotInitialized
	}

	workspaces, err := s.metadata.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	paths := make(map[string]string, len(workspaces))
	for _, ws := range workspaces {
		paths[ws.ID] = ws.Path
	}

	workspaceID := ""
	if workspaceRoot != "" {
		root, err := resolveWorkspaceRoot(workspaceRoot)
		if err != nil {
			return nil, err
		}
		ws, err := s.metadata.GetWorkspaceByPath(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("lookup workspace %s: %w", root, err)
		}
		if ws == nil {
			return []domain.IndexEntry{}, nil
		}
		workspaceID = ws.ID
	}

	files, err := s.metadata.ListIndexedFiles(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	entries := make([]domain.IndexEntry, 0, len(files))
	for i := range files {
		count, err := s.metadata.CountChunksForFile(ctx, files[i].ID)
		if err != nil {
			return nil, fmt.Errorf("count chunks for %s: %w", files[i].RelativePath, err)
		}
		entries = append(entries, domain.IndexEntry{
			File:          files[i],
			WorkspacePath: paths[files[i].WorkspaceID],
			ChunkCount:    count,
			IsStale:       isStale(&files[i]),
		})
	}
	return entries, nil
}

// isStale re-hashes the file on disk. Unreadable files are stale.
func isStale(file *domain.IndexedFile) bool {
	data, err := os.ReadFile(file.AbsolutePath)
	if err != nil {
		return true
	}
	return fingerprint.ContentHash(data) != file.ContentHash
}

// IsIndexing reports whether a run is in progress.
func (s *IndexingService) IsIndexing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexing
}

// Subscribe registers a listener for index events. Events are dropped for
// a subscriber whose buffer is full. The returned func unsubscribes and
// closes the channel.
func (s *IndexingService) Subscribe(buffer int) (<-chan domain.IndexEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.IndexEvent, buffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *IndexingService) publish(event domain.IndexEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// begin claims the single-run slot.
func (s *IndexingService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexing {
		return domain.ErrIndexingInProgress
	}
	s.indexing = true
	return nil
}

func (s *IndexingService) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexing = false
}

// ready checks the stores needed by every mutating operation.
func (s *IndexingService) ready() error {
	switch {
	case s.metadata == nil:
		return fmt.Errorf("%w: metadata store", domain.ErrNotInitialized)
	case s.vectors == nil:
		return domain.ErrVectorIndexUnavailable
	}
	return nil
}

// readyToIndex additionally checks the chunker and embedder, and that root
// is an existing directory.
func (s *IndexingService) readyToIndex(root string) error {
	if err := s.ready(); err != nil {
		return err
	}
	switch {
	case s.chunker == nil:
		return fmt.Errorf("%w: chunker", domain.ErrNotInitialized)
	case s.embedder == nil:
		return domain.ErrEmbeddingUnavailable
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}
	return nil
}

func (s *IndexingService) workspacePathOf(ctx context.Context, file *domain.IndexedFile) string {
	ws, err := s.metadata.ListWorkspaces(ctx)
	if err != nil {
		return ""
	}
	for _, w := range ws {
		if w.ID == file.WorkspaceID {
			return w.Path
		}
	}
	return ""
}

// isCancellation reports whether err came from context cancellation.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
