// Package fingerprint computes stable identifiers and change-detection
// hashes for workspaces, folders, files and chunks.
//
// Identifiers are pure functions of their inputs, so the same file in the
// same workspace maps to the same ID across process restarts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// IDLength is the number of hex characters kept from the SHA-256 digest.
const IDLength = 16

// WorkspaceID derives a workspace identifier from its absolute path.
func WorkspaceID(workspacePath string) string {
	return shortHash(workspacePath)
}

// FolderID derives a folder identifier from its workspace and relative path.
func FolderID(workspaceID, relativeFolderPath string) string {
	return shortHash(workspaceID + ":" + relativeFolderPath)
}

// FileID derives a file identifier from the workspace path and the file
// path relative to it.
func FileID(workspacePath, relativePath string) string {
	return shortHash(workspacePath + ":" + relativePath)
}

// ChunkID composes a chunk identifier from its file and line span.
// The format is lossless: distinct spans never produce the same ID.
func ChunkID(fileID string, lineStart, lineEnd int) string {
	return fmt.Sprintf("%s:%d-%d", fileID, lineStart, lineEnd)
}

// ContentHash returns a fast, non-cryptographic digest of data used to
// detect content changes between indexing runs.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// ParseChunkID splits a chunk ID back into its file ID and line span.
func ParseChunkID(chunkID string) (fileID string, lineStart, lineEnd int, err error) {
	colon := -1
	for i := len(chunkID) - 1; i >= 0; i-- {
		if chunkID[i] == ':' {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return "", 0, 0, fmt.Errorf("invalid chunk id %q", chunkID)
	}

	span := chunkID[colon+1:]
	dash := -1
	for i := 0; i < len(span); i++ {
		if span[i] == '-' {
			dash = i
			break
		}
	}
	if dash <= 0 {
		return "", 0, 0, fmt.Errorf("invalid chunk span %q", span)
	}

	lineStart, err = strconv.Atoi(span[:dash])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid chunk line start: %w", err)
	}
	lineEnd, err = strconv.Atoi(span[dash+1:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid chunk line end: %w", err)
	}
	return chunkID[:colon], lineStart, lineEnd, nil
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:IDLength]
}
