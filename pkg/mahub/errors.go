// ABOUTME: Error taxonomy re-exported from the protocol package
// ABOUTME: Lets callers match errors without importing protocol
package mahub

import "github.com/Resonate-Protocol/mahub-go/pkg/protocol"

var (
	ErrNotConnected    = protocol.ErrNotConnected
	ErrInvalidResponse = protocol.ErrInvalidResponse
)

type (
	ConnectionFailedError = protocol.ConnectionFailedError
	CommandTimeoutError   = protocol.CommandTimeoutError
	ServerError           = protocol.ServerError
	DecodingError         = protocol.DecodingError
)
