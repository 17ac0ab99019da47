package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config tunes the local cache tier backing a Backend implementation.
type Config struct {
	// Capacity is the maximum number of entries across both indices.
	Capacity int

	// NumShards determines how many shards the cache splits into. Higher
	// values improve concurrency at some memory overhead.
	NumShards int

	// TTL is how long an entry stays valid once written.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache
	// reaches capacity, between 1 and 100.
	EvictionPercentage int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
	)
}
