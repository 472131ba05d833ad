package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Application close codes sent to clients. Codes below 4004 are terminal for
// the given request; clients should only retry on CloseSetupError,
// CloseSendOverflow and CloseGoingAway.
const (
	CloseSetupError        = 4000
	CloseAuthRequired      = 4001
	CloseMissingBusinessID = 4002
	CloseAccessDenied      = 4003
	CloseSendOverflow      = 4008

	CloseGoingAway     = websocket.CloseGoingAway
	CloseNormalClosure = websocket.CloseNormalClosure
)

// Close reasons paired with the codes above.
const (
	ReasonAuthRequired      = "Authentication required"
	ReasonMissingBusinessID = "businessId is required"
	ReasonAccessDenied      = "Access denied to business"
	ReasonSetupError        = "Connection setup failed"
	ReasonSendOverflow      = "Send buffer overflow"
	ReasonShutdown          = "Server shutting down"
)

// Reject closes a freshly upgraded connection that never reached the
// registry.
func Reject(conn *websocket.Conn, code int, reason string, writeWait time.Duration) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}
