package ports

// Source yields fragment payloads for an outgoing transfer.
// Next returns io.EOF once the data is exhausted. A payload returned by Next
// stays valid until the following call.
type Source interface {
	Next() ([]byte, error)

	// Fragments returns how many payloads the source will yield in total.
	Fragments() int
}
