// Package offline implements the key-value store backing the credential
// cache. It is the local analog of the browser's persistent storage: a
// handful of fixed keys, single writer, last write wins.
package offline

import "context"

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
