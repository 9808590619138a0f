// Package launcher fans a command template out over a run of integers with a
// bounded number of concurrent job steps and appends the output of every step
// to a single sink.
//
// Each value of the sequence first..last produces exactly one step. Steps run
// concurrently on up to Jobs workers while their results are gathered on a
// single goroutine, so the output of one step is never interleaved with the
// output of another. Results are appended in completion order, or in sequence
// order when KeepOrder is set.
//
// How a step runs is up to the [Runner]: a local process ([ExecRunner]), an
// exclusive job step of the batch scheduler ([SrunRunner]), a remote agent or
// an in-process function ([RunnerFunc]).
package launcher
