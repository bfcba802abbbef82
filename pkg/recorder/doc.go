// Package recorder uploads observed interactions and fixture proposals
// to a contract broker. Records are batched in memory and flushed on a
// timer, on batch-size overflow, and on Close; duplicates are dropped by
// canonical hash before they are queued.
package recorder
