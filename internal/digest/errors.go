package digest

import "fmt"

// SkipReason explains why an EFetch document produced no record.
type SkipReason string

const (
	// ReasonMalformed means the document could not be parsed or lacks a title.
	ReasonMalformed SkipReason = "malformed"
	// ReasonNoArticle means the document contains no PubmedArticle.
	ReasonNoArticle SkipReason = "no_article"
	// ReasonExcluded means the article carries an excluded publication type.
	ReasonExcluded SkipReason = "excluded"
)

// SkipError reports a PMID that yielded no record.
type SkipError struct {
	PMID   string
	Reason SkipReason
	Detail string
	Err    error
}

func (e *SkipError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("PMID %s %s: %v", e.PMID, e.Reason, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("PMID %s %s: %s", e.PMID, e.Reason, e.Detail)
	default:
		return fmt.Sprintf("PMID %s %s", e.PMID, e.Reason)
	}
}

func (e *SkipError) Unwrap() error { return e.Err }
