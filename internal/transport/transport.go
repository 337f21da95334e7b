// Package transport defines the collaborator interface through which the
// coordination core hands messages to the backend connection, plus the
// message shapes it consumes and produces. The actual connection (its
// wire protocol, reconnect logic, and authentication) lives outside the
// core; this package deliberately specifies nothing about it.
package transport

// UploadRequest is the outbound payload for a file upload. The request
// id travels in metadata so a well-behaved backend can echo it back;
// older backends correlate by filename only.
type UploadRequest struct {
	RequestID       string `json:"requestId"`
	Filename        string `json:"filename"`
	Content         []byte `json:"content"`
	StorageLocation string `json:"storageLocation"`
}

// UploadResponse is the inbound acknowledgment for an upload. The
// backend may have renamed the resource to avoid a collision, in which
// case Filename will not match any pending request verbatim.
type UploadResponse struct {
	RequestID string `json:"requestId,omitempty"`
	Filename  string `json:"filename"`
	Success   bool   `json:"success"`
}

// Sender hands a message to the backend connection, fire-and-forget.
// A returned error means the message never left the client (connection
// down, serialization failure); it says nothing about whether the
// backend will acknowledge.
type Sender interface {
	Send(req UploadRequest) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(req UploadRequest) error

// Send calls f(req).
func (f SenderFunc) Send(req UploadRequest) error { return f(req) }
