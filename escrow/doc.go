// Package escrow implements custody accounting for jobs, isolated from the
// status rules so fund movement can be audited on its own.
//
// A job's [Holding] is opened once by [Hold] and emptied exactly once by
// either [Holding.Release] or [Holding.Refund]. The held amount is the only
// guard: a second settlement observes zero and fails closed with
// trustwork.ErrNothingHeld instead of paying twice.
//
// Every movement is recorded as an immutable [Transfer]. Transfers are
// persisted by the job store in the same atomic write as the job record,
// so the ledger and the job status can never disagree.
package escrow
