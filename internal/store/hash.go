package store

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jward/movefcg/internal/manifest"
)

// FileHash returns the hex SHA-256 of a source file's content.
func FileHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// hashFile hashes root/rel, or returns "" when it cannot be read.
func hashFile(root, rel string) string {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return ""
	}
	return FileHash(data)
}

// Changed reports whether files, the current discovery result under root,
// differ from the snapshot: a file was added, removed or edited since it was
// saved, or the manifest was created, removed or edited.
func (s *Store) Changed(root string, files []string) (bool, error) {
	saved, err := s.Metadata("manifest_hash")
	if err != nil {
		return false, fmt.Errorf("changed: %w", err)
	}
	if saved != hashFile(root, manifest.FileName) {
		return true, nil
	}

	rows, err := s.db.Query("SELECT path, hash FROM files")
	if err != nil {
		return false, fmt.Errorf("changed: query files: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return false, fmt.Errorf("changed: scan file: %w", err)
		}
		hashes[path] = hash
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("changed: rows: %w", err)
	}

	if len(hashes) != len(files) {
		return true, nil
	}
	for _, f := range files {
		hash, ok := hashes[f]
		if !ok || hash != hashFile(root, f) {
			return true, nil
		}
	}
	return false, nil
}
