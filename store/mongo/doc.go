// Package mongo implements store.Store on the official MongoDB driver.
//
// Each job is one document that embeds its ledger entries, so a
// transition and the transfer it produces land in a single-document
// write. UpdateJob is a compare-and-swap on the version field: it reads
// the document, applies the mutator and updates only if the version is
// unchanged, retrying otherwise. Ids come from a counters collection.
//
// The caller owns the client lifecycle; mongo never closes it:
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	store := mongo.New(client.Database("trustwork"))
//	store.Migrate(ctx)
package mongo
