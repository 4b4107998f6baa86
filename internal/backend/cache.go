package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymlog/internal/workout"
)

const (
	oneHour          = 60 * 60
	probeCacheExpire = oneHour * 6
	megabyte         = 1024 * 1024
)

// CachedClient keeps found lift and run probes in memory, stored as
// workout records. A record never changes once stored, so a hit is only
// invalidated by deleting its timestamp. Empty probes are never cached:
// the timestamp may still be filled later.
type CachedClient struct {
	*Client
	cache *freecache.Cache
}

func NewCachedClient(client *Client, cacheSizeMB int) *CachedClient {
	if cacheSizeMB <= 0 {
		cacheSizeMB = 10
	}
	return &CachedClient{
		Client: client,
		cache:  freecache.NewCache(cacheSizeMB * megabyte),
	}
}

func liftCacheKey(timestamp int64) []byte {
	return []byte(fmt.Sprintf("lift::%d", timestamp))
}

func runCacheKey(timestamp int64) []byte {
	return []byte(fmt.Sprintf("run::%d", timestamp))
}

func (c *CachedClient) FetchLift(ctx context.Context, timestamp int64) (*workout.Lift, error) {
	key := liftCacheKey(timestamp)
	if record, ok := c.get(key); ok {
		if lift, isLift := record.Lift(); isLift {
			log.Tracef("lift %d found in cache", timestamp)
			return &lift, nil
		}
		log.Errorf("cached probe %s is not a lift: %s", key, record)
	}

	lift, err := c.Client.FetchLift(ctx, timestamp)
	if err != nil || lift == nil {
		return lift, err
	}
	c.set(key, workout.NewLiftRecord(timestamp, *lift))
	return lift, nil
}

func (c *CachedClient) FetchRun(ctx context.Context, timestamp int64) (*workout.Run, error) {
	key := runCacheKey(timestamp)
	if record, ok := c.get(key); ok {
		if run, isRun := record.Run(); isRun {
			log.Tracef("run %d found in cache", timestamp)
			return &run, nil
		}
		log.Errorf("cached probe %s is not a run: %s", key, record)
	}

	run, err := c.Client.FetchRun(ctx, timestamp)
	if err != nil || run == nil {
		return run, err
	}
	c.set(key, workout.NewRunRecord(timestamp, *run))
	return run, nil
}

func (c *CachedClient) DeleteTimestamp(ctx context.Context, timestamp int64) error {
	c.cache.Del(liftCacheKey(timestamp))
	c.cache.Del(runCacheKey(timestamp))
	return c.Client.DeleteTimestamp(ctx, timestamp)
}

// HitRate is the share of probes answered from memory.
func (c *CachedClient) HitRate() float64 {
	return c.cache.HitRate()
}

func (c *CachedClient) get(key []byte) (workout.Record, bool) {
	cached, err := c.cache.Get(key)
	if err != nil {
		return workout.Record{}, false
	}
	var record workout.Record
	if err := json.Unmarshal(cached, &record); err != nil {
		log.Errorf("unmarshal cached probe [%s]: %s", key, err)
		return workout.Record{}, false
	}
	return record, true
}

func (c *CachedClient) set(key []byte, record workout.Record) {
	recordBytes, err := json.Marshal(record)
	if err != nil {
		log.Errorf("marshal probe for cache [%s]: %s", key, err)
		return
	}
	if err := c.cache.Set(key, recordBytes, probeCacheExpire); err != nil {
		log.Errorf("set probe cache [%s]: %s", key, err)
	}
}
