// Package bus implements the in-process message bus connecting the MediSync
// agents: agent registration, topic subscriptions, a bounded FIFO queue with
// drop-oldest backpressure, handler dispatch and delivery statistics.
//
// The bus is purely a bookkeeping layer. Request/response correlation is a
// convention carried by a shared correlation identifier; the bus never waits
// for a response and never enforces the advisory response timeout. Failed
// messages are retained for inspection, never retried.
package bus
