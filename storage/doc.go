// Package storage publishes exported files to object storage. Backends
// register themselves from init; import the ones a binary supports:
//
//	import (
//	    _ "github.com/kbukum/portalgpt/storage/local"
//	    _ "github.com/kbukum/portalgpt/storage/s3"
//	)
//
//	store, err := storage.New(ctx, cfg, log)
//	err = store.Upload(ctx, "london/datasets.jsonl", f)
//
// Configuration:
//
//	upload:
//	  provider: s3
//	  bucket: portal-exports
//	  region: eu-west-2
//	  prefix: london/
package storage
