// Package auth keeps the local authorization cache and local authorization list.
package auth

import (
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"charge_point/common"

	"github.com/sirupsen/logrus"
)

var ErrCacheFull = errors.New("authorization cache full")

type Entry struct {
	ID         string                     `json:"id"`
	Status     common.AuthorizationStatus `json:"status"`
	ExpiryDate *time.Time                 `json:"expiry_date,omitempty"`
}

func (e Entry) expired(now time.Time) bool {
	return e.ExpiryDate != nil && !now.Before(*e.ExpiryDate)
}

type document struct {
	Version        int     `json:"version"`
	AuthorizedTags []Entry `json:"authorized_tags"`
}

// Cache maps tag ids to their last known verdict. Every change is written to disk.
type Cache struct {
	mu      sync.RWMutex
	path    string
	maxSize int
	version int
	tags    map[string]Entry
	log     *logrus.Entry
}

// Open loads the cache file at path. A missing or corrupt file yields an empty cache at version 0.
func Open(path string, maxSize int, log *logrus.Entry) (*Cache, error) {
	c := &Cache{
		path:    path,
		maxSize: maxSize,
		tags:    make(map[string]Entry),
		log:     log.WithField("message", "authorization cache"),
	}
	var doc document
	err := common.ReadJSONFile(path, &doc)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		c.log.Errorf("unreadable cache file %v, starting empty: %v", path, err)
		return c, nil
	}
	c.version = doc.Version
	for _, entry := range doc.AuthorizedTags {
		c.tags[entry.ID] = entry
	}
	return c, nil
}

func (c *Cache) SetMaxSize(maxSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
}

func (c *Cache) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tags)
}

func (c *Cache) Lookup(tagID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.tags[tagID]
	return entry, ok
}

// IsTagAuthorized reports whether tagID is cached as accepted and not expired.
func (c *Cache) IsTagAuthorized(tagID string) bool {
	entry, ok := c.Lookup(tagID)
	return ok && entry.Status == common.AuthorizationAccepted && !entry.expired(time.Now())
}

// Update stores the verdict for tagID, replacing any previous one.
func (c *Cache) Update(tagID string, info common.AuthorizationInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tags[tagID]; !exists && c.maxSize > 0 && len(c.tags) >= c.maxSize {
		return ErrCacheFull
	}
	c.tags[tagID] = Entry{ID: tagID, Status: info.Status, ExpiryDate: info.Expiry}
	return c.saveLocked()
}

func (c *Cache) Remove(tagID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tags[tagID]; !ok {
		return nil
	}
	delete(c.tags, tagID)
	return c.saveLocked()
}

// Clear drops every tag. The list version is kept.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = make(map[string]Entry)
	return c.saveLocked()
}

// ApplyLocalList installs a local authorization list sent by the central system.
func (c *Cache) ApplyLocalList(version int, full bool, entries []common.AuthorizationEntry) common.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version <= c.version {
		return common.StatusVersionMismatch
	}

	tags := make(map[string]Entry, len(c.tags)+len(entries))
	if !full {
		for id, entry := range c.tags {
			tags[id] = entry
		}
	}
	for _, update := range entries {
		if update.Info == nil {
			delete(tags, update.TagID)
			continue
		}
		tags[update.TagID] = Entry{ID: update.TagID, Status: update.Info.Status, ExpiryDate: update.Info.Expiry}
	}
	if c.maxSize > 0 && len(tags) > c.maxSize {
		return common.StatusFailed
	}

	previousTags, previousVersion := c.tags, c.version
	c.tags, c.version = tags, version
	if err := c.saveLocked(); err != nil {
		c.tags, c.version = previousTags, previousVersion
		return common.StatusFailed
	}
	return common.StatusAccepted
}

func (c *Cache) saveLocked() error {
	doc := document{Version: c.version, AuthorizedTags: make([]Entry, 0, len(c.tags))}
	for _, entry := range c.tags {
		doc.AuthorizedTags = append(doc.AuthorizedTags, entry)
	}
	sort.Slice(doc.AuthorizedTags, func(i, j int) bool {
		return doc.AuthorizedTags[i].ID < doc.AuthorizedTags[j].ID
	})
	if err := common.WriteJSONFile(c.path, &doc); err != nil {
		c.log.Errorf("write %s: %v", c.path, err)
		return err
	}
	return nil
}
