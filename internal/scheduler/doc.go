// Package scheduler walks a dag.Plan and builds every subproject with a
// bounded pool of workers.
//
// # How It Works
//
// Every subproject is a task with a lifecycle:
//
//	declared -> activated -> building -> complete | failed
//	declared | activated -> skipped
//
// A task is activated once every dependency that gates it is complete.
// Build dependencies always gate. Runtime dependencies gate only when the
// dependency is built in foreground mode; a background dependency lets its
// runtime dependents overlap it, and only packaging waits for it. Activated
// tasks are queued on a ready channel consumed by JobLimit workers.
//
// When a build fails, every transitive dependent that has not started yet
// is skipped. Builds already running continue, as do independent branches.
// Run returns once every task is terminal, with a RunError listing the
// failures.
//
// Each task exposes a future: Await blocks until the task is terminal and
// can be called from other goroutines while Run is in progress.
//
// # Relationship with Other Components
//
//   - **dag:** supplies the immutable plan and edge kinds.
//   - **Builder:** the collaborator that runs the configure, build and
//     install phases of one subproject (see the builder package).
//   - **packager:** reads terminal states, either live through Await or from
//     the state file persisted at the end of Run.
package scheduler
