// Package core provides the foundational domain types used by the MediSync
// agent communication core. It defines:
//
//   - Message (immutable inter-agent communication records)
//   - MessageType / MessagePriority (closed enumerations with wire names)
//   - Constructors for the standard communication patterns (request,
//     response, broadcast, notification)
//   - ID generation shared by every subsystem
//
// The package intentionally keeps implementation concerns (queueing,
// dispatch, tool execution) out of scope; those live in the bus and tool
// packages which depend on these value types.
package core
