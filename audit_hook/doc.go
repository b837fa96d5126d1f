// Package audithook is a ledger extension that bridges lifecycle events
// to an immutable audit trail backend.
//
// Every job creation, committed transition, rejected request and escrow
// movement emits a structured audit event through the [Recorder]
// interface. Rejections are recorded at warning severity with the refused
// action and the reason; everything else is informational. Events carry
// the acting identity so the trail answers "who moved this money".
//
// # Usage
//
//	l, err := ledger.New(store,
//	    ledger.WithExtension(audithook.New(audithook.LogRecorder(logger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionFundsReleased,
//	        audithook.ActionFundsRefunded,
//	        audithook.ActionTransitionRejected,
//	    ),
//	)
package audithook
