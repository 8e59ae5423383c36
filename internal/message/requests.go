package message

import (
	"net/http"

	"github.com/mark3labs/msgkit/internal/transport"
)

// API paths, relative to the configured base URL.
const (
	PathMessage = "messages/message"
	PathReply   = "messages/reply"
)

// EditBody is the PATCH payload for changing a message body.
type EditBody struct {
	MsgBody   string `json:"msgBody"`
	MessageID string `json:"messageId"`
}

// DeleteBody is the DELETE payload.
type DeleteBody struct {
	MessageID string `json:"messageId"`
}

// ReplyBody is the POST payload for attaching a reply.
type ReplyBody struct {
	ReplyBody string `json:"replyBody"`
	MessageID string `json:"messageId"`
}

// EditRequest builds the request that replaces the body of message id.
func EditRequest(id, body, token string) transport.Request {
	return transport.Request{
		Method: http.MethodPatch,
		Path:   PathMessage,
		Body:   EditBody{MsgBody: body, MessageID: id},
		Token:  token,
	}
}

// DeleteRequest builds the request that removes message id.
func DeleteRequest(id, token string) transport.Request {
	return transport.Request{
		Method: http.MethodDelete,
		Path:   PathMessage,
		Body:   DeleteBody{MessageID: id},
		Token:  token,
	}
}

// ReplyRequest builds the request that attaches reply to message id.
func ReplyRequest(id, reply, token string) transport.Request {
	return transport.Request{
		Method: http.MethodPost,
		Path:   PathReply,
		Body:   ReplyBody{ReplyBody: reply, MessageID: id},
		Token:  token,
	}
}
