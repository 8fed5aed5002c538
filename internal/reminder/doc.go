// Package reminder implements the recurring-reminder core: the store-backed
// command surface (add/list/delete), the pure due-set resolver, the delivery
// dispatcher and the checkpointed scheduling engine with downtime catch-up.
//
// Delivery is at-least-once: the checkpoint is persisted only after a full
// dispatch pass, so a crash between dispatch and checkpoint write re-delivers
// the same window on restart.
package reminder
