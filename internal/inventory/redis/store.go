// Package redis provides a Redis-backed inventory.Store.
//
// DECRBY/INCRBY are Redis's native compare-free arithmetic primitives and
// map one-to-one onto the unconditional decrement contract, negative results
// included. The conditional variant runs as a Lua script so the
// read-compare-subtract sequence executes as one atomic server-side step.
// Redis serializes script execution per node, which gives the per-id
// serialization the saga depends on.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
)

var _ inventory.Store = (*Store)(nil)

// keyPrefix namespaces stock records so the same Redis instance can hold
// other application state.
const keyPrefix = "inventory:stock:"

// Script error replies are matched by these markers to translate them into
// the package sentinel errors.
const (
	replyNotFound     = "NOTFOUND"
	replyInsufficient = "INSUFFICIENT"
)

// decrBy refuses to treat a missing key as zero (plain DECRBY would) so a
// vanished item surfaces as NotFound instead of silently creating a record.
var decrBy = redis.NewScript(`
local stock = redis.call("GET", KEYS[1])
if not stock then return redis.error_reply("NOTFOUND") end
return redis.call("DECRBY", KEYS[1], ARGV[1])
`)

// decrByIfAvailable is the strengthened primitive: check and subtract in a
// single atomic step, never going below zero.
var decrByIfAvailable = redis.NewScript(`
local stock = redis.call("GET", KEYS[1])
if not stock then return redis.error_reply("NOTFOUND") end
if tonumber(stock) < tonumber(ARGV[1]) then return redis.error_reply("INSUFFICIENT") end
return redis.call("DECRBY", KEYS[1], ARGV[1])
`)

var incrBy = redis.NewScript(`
local stock = redis.call("GET", KEYS[1])
if not stock then return redis.error_reply("NOTFOUND") end
return redis.call("INCRBY", KEYS[1], ARGV[1])
`)

type Store struct {
	client *redis.Client
}

func NewStore(addr string) *Store {
	return &Store{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewStoreWithClient wires an existing client, e.g. one shared with tests.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, itemID string) (inventory.Item, error) {
	stock, err := s.client.Get(ctx, keyPrefix+itemID).Int64()
	if errors.Is(err, redis.Nil) {
		return inventory.Item{}, fmt.Errorf("%w: %s", inventory.ErrNotFound, itemID)
	}
	if err != nil {
		return inventory.Item{}, fmt.Errorf("%w: get %s: %v", inventory.ErrUnavailable, itemID, err)
	}
	return inventory.Item{ID: itemID, Stock: stock}, nil
}

func (s *Store) Put(ctx context.Context, item inventory.Item) error {
	if err := s.client.Set(ctx, keyPrefix+item.ID, item.Stock, 0).Err(); err != nil {
		return fmt.Errorf("%w: put %s: %v", inventory.ErrUnavailable, item.ID, err)
	}
	return nil
}

func (s *Store) DecrementBy(ctx context.Context, itemID string, quantity int64) (int64, error) {
	return s.runStockScript(ctx, decrBy, "decrby", itemID, quantity)
}

func (s *Store) DecrementIfAvailable(ctx context.Context, itemID string, quantity int64) (int64, error) {
	return s.runStockScript(ctx, decrByIfAvailable, "decrby-if-available", itemID, quantity)
}

func (s *Store) IncrementBy(ctx context.Context, itemID string, quantity int64) (int64, error) {
	return s.runStockScript(ctx, incrBy, "incrby", itemID, quantity)
}

func (s *Store) runStockScript(ctx context.Context, script *redis.Script, op, itemID string, quantity int64) (int64, error) {
	newStock, err := script.Run(ctx, s.client, []string{keyPrefix + itemID}, quantity).Int64()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), replyNotFound):
			return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, itemID)
		case strings.Contains(err.Error(), replyInsufficient):
			return 0, fmt.Errorf("%w: %s requested %d", inventory.ErrInsufficientStock, itemID, quantity)
		default:
			return 0, fmt.Errorf("%w: %s %s: %v", inventory.ErrUnavailable, op, itemID, err)
		}
	}
	return newStock, nil
}
