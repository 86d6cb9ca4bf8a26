package sqlite

import "context"

// Snapshot writes a consistent, compacted copy of the database to destPath
// using SQLite's VACUUM INTO, which (unlike a raw file copy) is safe to run
// against a live WAL-mode database without external locking.
func (s *Store) Snapshot(ctx context.Context, destPath string) error {
	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath)
	return err
}
