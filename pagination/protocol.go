package pagination

import (
	"errors"

	"github.com/tidwall/gjson"
)

// The coordinator protocol is newline-delimited JSON over a stream socket.
// A request names one of three commands and carries a correlation id the
// response echoes back:
//
//	{"id":"…","command":"inline.get","sender":42}
//	{"id":"…","offset":5}
//
// Unknown or malformed frames get an error response; the connection stays
// open.

const (
	CmdGet    = "inline.get"
	CmdUpdate = "inline.update"
	CmdPurge  = "inline.purge"
)

// ErrInvalidFrame is returned for frames that are not valid JSON or carry
// no command field.
var ErrInvalidFrame = errors.New("invalid protocol frame")

type request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Sender  int64  `json:"sender"`
	Offset  int    `json:"offset,omitempty"`
}

type response struct {
	ID     string `json:"id"`
	Offset int    `json:"offset,omitempty"`
	Error  string `json:"error,omitempty"`
}

// peekCommand reads the command field without decoding the whole frame, a
// cheap validity check before the full unmarshal.
func peekCommand(frame []byte) (string, error) {
	if !gjson.ValidBytes(frame) {
		return "", ErrInvalidFrame
	}
	cmd := gjson.GetBytes(frame, "command")
	if !cmd.Exists() || cmd.Type != gjson.String {
		return "", ErrInvalidFrame
	}
	return cmd.String(), nil
}
