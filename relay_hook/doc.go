// Package relayhook bridges ledger lifecycle events to Relay for webhook
// delivery. When registered as an extension, it emits typed webhook events
// (trustwork.job.completed, trustwork.escrow.released and so on) after
// every committed change.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	hook := relayhook.New(r)
//	ledger.New(s, ledger.WithExtension(hook))
//
// To restrict which events are emitted:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventFundsReleased,
//	        relayhook.EventFundsRefunded,
//	    ),
//	)
package relayhook
