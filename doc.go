// Package fedopt implements a federated prompt-optimization engine backed
// by a persistent, per-category job queue.
//
// A weighted population of prompt templates is repeatedly scored against
// media samples drawn from named domains, aggregated into a ranking, and
// periodically evolved by recombining the best performers through an
// external text-generation service. All long-running work is serialized
// through a crash-tolerant job queue that enforces at most one in-flight
// job per category with bounded retry.
//
// See pkg/fpo for the optimization engine, pkg/queue for the job queue,
// and cmd/fedoptd for the HTTP surface.
package fedopt
