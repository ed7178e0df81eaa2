package models

// CrawlResultBatch is the signed callback payload. Batch indices are
// strictly increasing per job; exactly one batch carries IsFinal unless
// the job is cancelled mid-run.
type CrawlResultBatch struct {
	JobID      string       `json:"job_id"`
	BatchIndex int          `json:"batch_index"`
	IsFinal    bool         `json:"is_final"`
	Pages      []PageResult `json:"pages"`
	Stats      CrawlStats   `json:"stats"`
}

// BacklinkEntry matches the coordinator's backlinks ingestion payload
// shape (camelCase on the wire).
type BacklinkEntry struct {
	SourceURL    string `json:"sourceUrl"`
	SourceDomain string `json:"sourceDomain"`
	TargetURL    string `json:"targetUrl"`
	TargetDomain string `json:"targetDomain"`
	AnchorText   string `json:"anchorText"`
	Rel          string `json:"rel"`
}

// BacklinksPayload wraps entries for the ingestion endpoint.
type BacklinksPayload struct {
	Links []BacklinkEntry `json:"links"`
}
