// Package checkpoint persists crawl snapshots so an interrupted run can
// resume where it stopped.
//
// BlobStore keeps the snapshot as an indented JSON document in any
// crawler.BlobStore (local directory, memory or GCS). BoltStore keeps it in a
// single bbolt key, which gives transactional replacement on local disk.
package checkpoint
