// internal/database/boltstore.go - BoltDB implementation
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	WebsitesBucket      = []byte("websites")
	ResultsBucket       = []byte("monitoring_results")
	LatestBucket        = []byte("latest_results")
	NotificationsBucket = []byte("notifications")
	SettingsBucket      = []byte("settings")
)

var allBuckets = [][]byte{WebsitesBucket, ResultsBucket, LatestBucket, NotificationsBucket, SettingsBucket}

type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	store := &BoltStore{db: db, path: path}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) ListWebsites(ctx context.Context) ([]Website, error) {
	var sites []Website

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(WebsitesBucket)
		return b.ForEach(func(k, v []byte) error {
			var site Website
			if err := json.Unmarshal(v, &site); err != nil {
				return fmt.Errorf("failed to unmarshal website %s: %w", k, err)
			}
			sites = append(sites, site)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].CreatedAt.Before(sites[j].CreatedAt)
	})
	return sites, nil
}

func (s *BoltStore) GetWebsite(ctx context.Context, id string) (*Website, error) {
	var site Website

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(WebsitesBucket).Get([]byte(id))
		if v == nil {
			return ErrWebsiteNotFound
		}
		return json.Unmarshal(v, &site)
	})
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *BoltStore) CreateWebsite(ctx context.Context, site *Website) error {
	if site.ID == "" {
		site.ID = uuid.New().String()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}

	return s.putJSON(WebsitesBucket, site.ID, site)
}

func (s *BoltStore) UpdateWebsite(ctx context.Context, site *Website) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(WebsitesBucket)
		if b.Get([]byte(site.ID)) == nil {
			return ErrWebsiteNotFound
		}

		data, err := json.Marshal(site)
		if err != nil {
			return fmt.Errorf("failed to marshal website: %w", err)
		}
		return b.Put([]byte(site.ID), data)
	})
}

// DeleteWebsite removes the website and its latest-result pointer. Result
// history stays until the retention purge removes it.
func (s *BoltStore) DeleteWebsite(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(WebsitesBucket)
		if b.Get([]byte(id)) == nil {
			return ErrWebsiteNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(LatestBucket).Delete([]byte(id))
	})
}

func (s *BoltStore) CreateMonitoringResult(ctx context.Context, result *MonitoringResult) error {
	result.ID = uuid.New().String()
	result.CheckedAt = time.Now().UTC()

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal monitoring result: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(ResultsBucket).Put(resultKey(result), data); err != nil {
			return err
		}
		return tx.Bucket(LatestBucket).Put([]byte(result.WebsiteID), data)
	})
}

// GetMonitoringResults returns results newest first.
func (s *BoltStore) GetMonitoringResults(ctx context.Context, filters ResultFilters) ([]MonitoringResult, error) {
	var results []MonitoringResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(ResultsBucket).Cursor()

		collect := func(v []byte) {
			var result MonitoringResult
			if err := json.Unmarshal(v, &result); err != nil {
				return // Skip malformed entries
			}
			results = append(results, result)
		}

		if filters.WebsiteID == "" {
			for k, v := c.First(); k != nil; k, v = c.Next() {
				collect(v)
			}
			return nil
		}

		prefix := []byte(filters.WebsiteID + ":")
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			collect(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CheckedAt.After(results[j].CheckedAt)
	})
	if filters.Limit > 0 && len(results) > filters.Limit {
		results = results[:filters.Limit]
	}
	return results, nil
}

func (s *BoltStore) GetLatestMonitoringResults(ctx context.Context) ([]MonitoringResult, error) {
	var results []MonitoringResult

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(LatestBucket).ForEach(func(k, v []byte) error {
			var result MonitoringResult
			if err := json.Unmarshal(v, &result); err != nil {
				return nil
			}
			results = append(results, result)
			return nil
		})
	})

	return results, err
}

func (s *BoltStore) CreateNotification(ctx context.Context, n *Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now().UTC()
	n.EmailSent = false
	n.SMSSent = false

	return s.putJSON(NotificationsBucket, n.ID, n)
}

func (s *BoltStore) MarkEmailSent(ctx context.Context, id string) error {
	return s.updateNotification(id, func(n *Notification) { n.EmailSent = true })
}

func (s *BoltStore) MarkSMSSent(ctx context.Context, id string) error {
	return s.updateNotification(id, func(n *Notification) { n.SMSSent = true })
}

// GetNotifications returns notifications newest first.
func (s *BoltStore) GetNotifications(ctx context.Context, limit int) ([]Notification, error) {
	var notifications []Notification

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(NotificationsBucket).ForEach(func(k, v []byte) error {
			var n Notification
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("failed to unmarshal notification %s: %w", k, err)
			}
			notifications = append(notifications, n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (s *BoltStore) GetSettings(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(SettingsBucket).ForEach(func(k, v []byte) error {
			values[string(k)] = string(v)
			return nil
		})
	})

	return values, err
}

func (s *BoltStore) PutSettings(ctx context.Context, values map[string]string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(SettingsBucket)
		for key, value := range values {
			if err := b.Put([]byte(key), []byte(value)); err != nil {
				return fmt.Errorf("failed to store setting %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) putJSON(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", bucket, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *BoltStore) updateNotification(id string, apply func(*Notification)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(NotificationsBucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotificationNotFound
		}

		var n Notification
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("failed to unmarshal notification %s: %w", id, err)
		}
		apply(&n)

		data, err := json.Marshal(&n)
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		return b.Put([]byte(id), data)
	})
}

// resultKey sorts a website's results chronologically under a shared prefix.
func resultKey(result *MonitoringResult) []byte {
	return []byte(fmt.Sprintf("%s:%020d:%s", result.WebsiteID, result.CheckedAt.UnixNano(), result.ID))
}
