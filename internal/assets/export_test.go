package assets

import "context"

// BumpSchemaVersionForTest simulates a database created by a newer release.
func (s *Store) BumpSchemaVersionForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE schema_version SET version = version + 1")
	return err
}

// RetryAssetWriteForTest exposes the busy-retry loop used by asset writes.
func RetryAssetWriteForTest(ctx context.Context, op string, write func() error) error {
	return retryAssetWrite(ctx, op, write)
}
