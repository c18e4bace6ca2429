// Package isr caches fully rendered pages for incremental static
// regeneration.
//
// An IncrementalRenderer stores the final HTML of a route after the first
// streamed render has resolved every suspense boundary. Later requests for
// the route are answered from the cache until the entry is older than
// InvalidateAfter:
//
//	cache, err := isr.New(isr.Config{
//	    InvalidateAfter:  10 * time.Minute,
//	    MemoryCacheLimit: 64 << 20,
//	    Store:            isr.NewFileStore("./static"),
//	})
//
// Entries live in a Store. FileStore keeps them as index.html files in a
// static directory, BadgerStore in an embedded BadgerDB, RedisStore in Redis
// and S3Store in an S3 bucket. In front of the store sits an in-memory tier
// bounded by MemoryCacheLimit bytes.
//
// Cache failures never fail a render. Read errors are reported as misses
// and write errors are returned for the caller to log.
package isr
