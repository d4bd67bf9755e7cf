package query

import "time"

const (
	DefaultTTL      = 10 * time.Minute
	DefaultTimeout  = 2 * time.Minute
	DefaultPageSize = 10000
)

// Request is one query submission: the complete query text plus execution
// parameters.
type Request struct {
	SQL string
	// TTL is how long the service may serve a cached result for identical SQL.
	TTL      time.Duration
	Timeout  time.Duration
	PageSize int
}

// NewRequest returns a request with the default execution parameters.
func NewRequest(sql string) Request {
	return Request{
		SQL:      sql,
		TTL:      DefaultTTL,
		Timeout:  DefaultTimeout,
		PageSize: DefaultPageSize,
	}
}

// WithDefaults fills unset execution parameters.
func (r Request) WithDefaults() Request {
	if r.TTL <= 0 {
		r.TTL = DefaultTTL
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	return r
}
