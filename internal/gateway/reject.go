package gateway

// Reject is a terminal pipeline outcome that maps to a client error. It is
// the only error type Ingest returns deliberately; anything else is an
// internal failure the handler turns into a 500.
type Reject struct {
	Status int    // HTTP status code
	Detail string // client-facing message
}

func (r *Reject) Error() string {
	return r.Detail
}
