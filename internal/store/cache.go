package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/allegro/bigcache"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Cache is the hot-row, in-memory cache used to avoid round-tripping to
// Postgres for rows that change once per block or once per payday: the
// current chain parameters row and the active validator set. This plays
// the same role the teacher's cache.MemBridge plays for Opera epoch and
// account data (internal/repository/sfc.go CurrentSealedEpoch), just
// pointed at different hot rows.
type Cache struct {
	bc  *bigcache.BigCache
	log logger.Logger
}

const (
	keyChainParameters = "chain_parameters"
	keyValidatorPrefix = "validator:"
)

// NewCache builds the bigcache-backed store. Entries expire after ten
// minutes; validator rows are also dropped when a store write in the same
// process changes them, while the chain parameters entry is not
// invalidated on write.
func NewCache(log logger.Logger) (*Cache, error) {
	cfg := bigcache.DefaultConfig(10 * time.Minute)
	cfg.HardMaxCacheSize = 64 // MB
	bc, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{bc: bc, log: log}, nil
}

// PullChainParameters returns the cached chain parameters row, nil if not
// present.
func (c *Cache) PullChainParameters() *types.ChainParameters {
	raw, err := c.bc.Get(keyChainParameters)
	if err != nil {
		return nil
	}
	var out types.ChainParameters
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warningf("cache: corrupt chain parameters entry: %v", err)
		return nil
	}
	return &out
}

// PushChainParameters stores the chain parameters row, overwriting on
// every change (§3 Chain parameters).
func (c *Cache) PushChainParameters(p *types.ChainParameters) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.bc.Set(keyChainParameters, raw)
}

// InvalidateValidator drops a cached validator row after its pool
// accumulators change (§4.3: denormalized pool_total_staked/
// pool_delegator_count).
func (c *Cache) InvalidateValidator(id types.BakerID) {
	_ = c.bc.Delete(validatorKey(id))
}

// PullValidator returns a cached validator row, nil if not present.
func (c *Cache) PullValidator(id types.BakerID) *types.Validator {
	raw, err := c.bc.Get(validatorKey(id))
	if err != nil {
		return nil
	}
	var out types.Validator
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

// PushValidator caches a validator row.
func (c *Cache) PushValidator(v *types.Validator) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.bc.Set(validatorKey(v.ID), raw)
}

func validatorKey(id types.BakerID) string {
	return keyValidatorPrefix + strconv.FormatUint(uint64(id), 10)
}

// Reset clears the whole cache; used after a destructive migration that
// may invalidate every cached row's schema expectations (§4.5).
func (c *Cache) Reset(_ context.Context) error {
	return c.bc.Reset()
}
