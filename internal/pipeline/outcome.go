package pipeline

import (
	"context"
	"errors"
	"sort"

	"github.com/sony/gobreaker"

	"github.com/henrybloomingdale/pubmed-digest/internal/digest"
	"github.com/henrybloomingdale/pubmed-digest/internal/eutils"
)

// ErrNoRecords is reported by Summary.Err when the run retained nothing.
var ErrNoRecords = errors.New("no records retained")

// FailureKind classifies why a call produced no result.
type FailureKind string

const (
	KindStatus      FailureKind = "status"
	KindRequest     FailureKind = "request"
	KindMalformed   FailureKind = FailureKind(digest.ReasonMalformed)
	KindNoArticle   FailureKind = FailureKind(digest.ReasonNoArticle)
	KindExcluded    FailureKind = FailureKind(digest.ReasonExcluded)
	KindCircuitOpen FailureKind = "circuit_open"
	KindCancelled   FailureKind = "cancelled"
)

// Outcome is the result of fetching one PMID: a record or a failure.
type Outcome struct {
	PMID   string
	Record digest.Record
	Kind   FailureKind
	Err    error
}

// OK reports whether the outcome carries a record.
func (o Outcome) OK() bool { return o.Err == nil }

// Classify maps an error from the fetch path to its failure kind. ctx is the
// run context: the failure counts as cancelled only when ctx is done. A
// request that hits the HTTP client timeout is a request failure.
func Classify(ctx context.Context, err error) FailureKind {
	var skip *digest.SkipError
	switch {
	case err == nil:
		return ""
	case ctx.Err() != nil:
		return KindCancelled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return KindCircuitOpen
	case errors.As(err, &skip):
		return FailureKind(skip.Reason)
	case eutils.IsStatus(err):
		return KindStatus
	default:
		return KindRequest
	}
}

// Summary describes a finished run.
type Summary struct {
	Query      string
	OutputPath string
	Requested  int
	Retained   int
	Skipped    map[FailureKind]int
	SearchErr  error
}

func (s *Summary) skip(kind FailureKind, n int) {
	if s.Skipped == nil {
		s.Skipped = make(map[FailureKind]int)
	}
	s.Skipped[kind] += n
}

// TotalSkipped is the number of PMIDs that produced no record.
func (s Summary) TotalSkipped() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Kinds returns the failure kinds seen, sorted.
func (s Summary) Kinds() []FailureKind {
	kinds := make([]FailureKind, 0, len(s.Skipped))
	for k := range s.Skipped {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Err returns ErrNoRecords when nothing was retained.
func (s Summary) Err() error {
	if s.Retained == 0 {
		return ErrNoRecords
	}
	return nil
}
