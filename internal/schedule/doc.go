// Package schedule is the spaced-repetition engine: a deterministic
// mastery/interval state machine applied after each review, and a
// stochastic selector that picks the next topic to review by weighing
// how overdue and how weak each candidate is.
//
// The package is pure: it performs no I/O, holds no shared state, and
// takes the clock and the random source as explicit arguments.
package schedule
