// Package batch splits the pending cards of a partition into windows: runs
// of consecutive cards whose rendered prompt stays within a character
// budget. A window is the unit sent to the completion service, and the
// position of a card inside its window is the position of its result in the
// reply.
package batch
