// internal/database/boltstore_extended.go - retention and stats for BoltStore
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

// DeleteResultsBefore removes monitoring results older than cutoff. Entries in
// the latest-results bucket are left alone so every website keeps its last
// known state.
func (s *BoltStore) DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deletedCount := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(ResultsBucket)
		cursor := b.Cursor()

		var keysToDelete [][]byte
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var result MonitoringResult
			if err := json.Unmarshal(v, &result); err != nil {
				continue
			}
			if result.CheckedAt.Before(cutoff) {
				keysToDelete = append(keysToDelete, copyBytes(k))
			}
		}

		for _, key := range keysToDelete {
			if err := b.Delete(key); err != nil {
				logrus.WithError(err).Error("Failed to delete monitoring result")
				continue
			}
			deletedCount++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old results: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"deleted_count": deletedCount,
		"cutoff_time":   cutoff,
	}).Info("Deleted old monitoring results")

	return deletedCount, nil
}

// GetDatabaseStats returns information about database size and health
func (s *BoltStore) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalWebsites = tx.Bucket(WebsitesBucket).Stats().KeyN
		stats.TotalNotifications = tx.Bucket(NotificationsBucket).Stats().KeyN

		results := tx.Bucket(ResultsBucket)
		stats.TotalResults = results.Stats().KeyN

		// Keys are grouped by website, so scan for the time range.
		return results.ForEach(func(k, v []byte) error {
			var result MonitoringResult
			if err := json.Unmarshal(v, &result); err != nil {
				return nil
			}
			if stats.OldestResult.IsZero() || result.CheckedAt.Before(stats.OldestResult) {
				stats.OldestResult = result.CheckedAt
			}
			if result.CheckedAt.After(stats.NewestResult) {
				stats.NewestResult = result.CheckedAt
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
	}

	return stats, nil
}

// copyBytes creates a copy of a byte slice
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	copied := make([]byte, len(b))
	copy(copied, b)
	return copied
}
