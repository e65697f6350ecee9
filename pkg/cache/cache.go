package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the read-through cache used for exchange snapshots
// (contract listings and similar short-TTL fetch results).
//
// Get fills dest, which must be a non-nil pointer to the same type the
// value was stored as. Every implementation honors typed destinations, so
// a caller can Set a []models.Contract and Get into a *[]models.Contract
// regardless of which backend is configured.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// assignTo copies a stored value into the caller's destination pointer.
func assignTo(dest, value interface{}) error {
	if dp, ok := dest.(*interface{}); ok {
		*dp = value
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return fmt.Errorf("cache: dest must be a non-nil pointer")
	}
	sv := reflect.ValueOf(value)
	if !sv.IsValid() || !sv.Type().AssignableTo(dv.Elem().Type()) {
		return fmt.Errorf("cache: cannot assign %T to %T", value, dest)
	}
	dv.Elem().Set(sv)
	return nil
}

// GenerateKey creates a cache key with prefix and ID.
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// GenerateKeyWithParams creates a cache key with multiple parameters.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}
