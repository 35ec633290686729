// Package dispatch invokes the handlers of matched rules for one webhook delivery.
//
// Dispatch returns as soon as the work is scheduled; the HTTP response never
// waits for handlers. Handlers of one delivery run sequentially on a single
// goroutine in rule declaration order, so deliveries are processed
// independently while each delivery keeps a deterministic order.
//
// Failure isolation:
//   - A handler error is logged and recorded, then the next handler runs
//   - A handler panic is recovered and treated as an error
//   - Handlers run on a context detached from the request, so they are not
//     cancelled when the response is written
//
// Handlers of one delivery share a goroutine, so a slow handler delays the
// handlers after it (a script may run until its timeout, 300s by default).
// It never delays the HTTP response or other deliveries.
//
// The dispatcher imposes no timeout on handlers. Handlers that need one
// (such as script handlers) enforce it themselves.
package dispatch
