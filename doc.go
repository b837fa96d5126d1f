// Package trustwork is an escrow job ledger. A client posts a job for a
// designated freelancer and funds it; the funds stay in custody until the
// client confirms delivery, the client cancels before work starts, or a
// third-party arbitrator settles a dispute.
//
// The ledger is a library first. Import it, pick a store, and drive jobs
// through the transition table:
//
//	s := memory.New()
//	l := ledger.New(s, ledger.WithLogger(logger))
//
//	ctx = identity.WithCaller(ctx, client)
//	j, err := l.CreateJob(ctx, ledger.NewJob{
//	    Freelancer: freelancer,
//	    Title:      "Logo design",
//	    Amount:     escrow.NewAmount(100),
//	    Deadline:   time.Now().Add(24 * time.Hour),
//	})
//
// # Architecture
//
// Each subsystem defines its own contract: the job package owns records
// and the job.Store interface, the escrow package owns custody accounting,
// access resolves roles, ledger applies the transition table, and dispute
// wraps arbitration. A single backend (memory, postgres, bun, redis,
// mongo) implements the composite store.Store.
//
// Every status change and every movement of funds goes through one
// atomic store update. Either the new record and its ledger entry are
// both persisted or neither is.
package trustwork
