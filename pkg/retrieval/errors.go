package retrieval

import (
	"fmt"
)

// ProtocolError indicates a required piece of response metadata is missing
// or malformed (the total-count header in paginated mode, the field-mapping
// header in streaming mode). It is fatal for the QuerySpec it occurs in.
type ProtocolError struct {
	Header string
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: header %s %s", e.Header, e.Reason)
}
