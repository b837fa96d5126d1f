// Package redis implements store.Store on Redis.
//
// Each job is a Hash holding its JSON payload plus the indexed fields.
// Sorted Sets scored by job id index jobs by status and by party, so
// listings come back in id order without a scan. Ledger entries are Lists
// appended in commit order.
//
// Ids come from INCR on a sequence key. UpdateJob is an optimistic
// transaction: it WATCHes the job key, applies the mutator and commits
// with MULTI/EXEC, retrying when another writer got there first.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
