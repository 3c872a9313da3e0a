// Package schedule defers callbacks on a single event loop.
//
// A Scheduler keeps at most one pending registration per (task, argument)
// pair. Scheduling a pair that is already pending moves it to the new
// deadline; cancelling removes it. Every registration owns one one-shot
// request on a timer port bound to the event loop's channel, and the loop
// calls Pump to run the tasks whose requests have expired.
//
// Registrations live in pooled records, ordered by deadline in a heap that
// serves diagnostics and teardown. The heap does not drive dispatch; each
// request expires on its own.
//
// Cron functions parse and validate cron expressions and compute upcoming
// run times. NewCronTask and NewIntervalTask build tasks that re-arm
// themselves.
package schedule
