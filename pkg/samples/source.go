// Package samples supplies evaluation samples for federated domains.
package samples

import "context"

// Sample is one unit of evaluation input: a media file to describe and an
// optional human reference text to score the description against.
type Sample struct {
	MediaPath     string
	ReferenceText string
}

// Source supplies samples per domain. A nil Sample with a nil error means
// the domain currently has no sample; the aggregator treats that as a
// skip, not a failure. Successive calls for the same domain may return
// different samples so repeated iterations see varied inputs.
type Source interface {
	Sample(ctx context.Context, domain string) (*Sample, error)
}
