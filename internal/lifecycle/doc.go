// Package lifecycle implements the compound list operations built on top of
// the store's primitives.
//
// Rollover retires the active list and starts its successor:
//
//	deactivate current → fetch recurring items → create list → allocate each
//
// The steps are separate store transactions. A failure part-way is reported
// through *StepError naming the step, and through RolloverResult, which says
// how far the rollover got. If the new list cannot be created the retired
// list is reactivated so the store is not left without an active list; if
// that compensation also fails it is logged at error level.
//
// Concurrent rollovers are not coordinated: two racing requests can each
// create a list. The newest active list wins in store.ActiveListID.
package lifecycle
