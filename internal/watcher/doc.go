// Package watcher polls the notification feed in the background, presents
// local notifications for items that were not seen on the previous poll and
// keeps the unread badge in sync.
//
// # Baseline
//
// The first successful poll after the watcher is enabled only records the ids
// it saw; nothing is presented. Later polls present items whose id was absent
// from the previous poll. The known-id set is replaced on every successful
// poll, so an item that drops out of the paged window and comes back is
// presented again.
//
// # Phases
//
// A Controller is always in one of three phases:
//
//	Disabled  -> no state, no timer
//	Polling   -> enabled and foregrounded; the Scheduler fires every interval
//	Suspended -> enabled but backgrounded; state kept, timer stopped
//
// Enable/disable and app lifecycle events drive the transitions. Every
// enable/disable bumps an epoch; a cycle that started under an older epoch
// drops its results instead of writing them back.
package watcher
