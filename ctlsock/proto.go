// Package ctlsock is the command channel between the attach driver and a
// console supervisor: a Unix domain control socket where one connection
// maps to one attach session. The console-request operation hands the
// chosen slot's master fd back to the caller out-of-band via SCM_RIGHTS;
// console-winch is a small in-band, fire-and-forget follow-up message on
// the same connection. Connection closure is the detach signal the
// allocator uses to free the slot.
package ctlsock

import (
	"encoding/binary"
	"fmt"
	"io"
)

type kind byte

const (
	kindConsoleRequest kind = 1
	kindConsoleWinch   kind = 2
)

type status byte

const (
	statusOK  status = 0
	statusErr status = 1
)

// requestFrame is console-request/console-winch's wire form: one byte of
// kind, then a little-endian int32 ttyreq (meaningful only for
// kindConsoleRequest; zero on the wire otherwise).
type requestFrame struct {
	kind   kind
	ttyreq int32
}

func writeRequest(w io.Writer, f requestFrame) error {
	buf := make([]byte, 5)
	buf[0] = byte(f.kind)
	binary.LittleEndian.PutUint32(buf[1:], uint32(f.ttyreq))
	_, err := w.Write(buf)
	return err
}

func readRequest(r io.Reader) (requestFrame, error) {
	buf := make([]byte, 5)
	if _, err := io.ReadFull(r, buf); err != nil {
		return requestFrame{}, err
	}
	return requestFrame{kind: kind(buf[0]), ttyreq: int32(binary.LittleEndian.Uint32(buf[1:]))}, nil
}

// responseFrame is console-request's reply: on success, ttynum (the fd
// itself travels as ancillary data in the same sendmsg/recvmsg call); on
// failure, an error kind byte plus a short human-readable message.
type responseFrame struct {
	status  status
	ttynum  int32
	errKind byte
	errMsg  string
}

func encodeResponse(f responseFrame) []byte {
	if f.status == statusOK {
		buf := make([]byte, 5)
		buf[0] = byte(statusOK)
		binary.LittleEndian.PutUint32(buf[1:], uint32(f.ttynum))
		return buf
	}
	msg := []byte(f.errMsg)
	buf := make([]byte, 4+len(msg))
	buf[0] = byte(statusErr)
	buf[1] = f.errKind
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(msg)))
	copy(buf[4:], msg)
	return buf
}

func decodeResponse(buf []byte) (responseFrame, error) {
	if len(buf) < 1 {
		return responseFrame{}, fmt.Errorf("ctlsock: empty response")
	}
	switch status(buf[0]) {
	case statusOK:
		if len(buf) < 5 {
			return responseFrame{}, fmt.Errorf("ctlsock: truncated ok response")
		}
		return responseFrame{status: statusOK, ttynum: int32(binary.LittleEndian.Uint32(buf[1:]))}, nil
	case statusErr:
		if len(buf) < 4 {
			return responseFrame{}, fmt.Errorf("ctlsock: truncated error response")
		}
		n := binary.LittleEndian.Uint16(buf[2:])
		if len(buf) < int(4+n) {
			return responseFrame{}, fmt.Errorf("ctlsock: truncated error message")
		}
		return responseFrame{status: statusErr, errKind: buf[1], errMsg: string(buf[4 : 4+n])}, nil
	default:
		return responseFrame{}, fmt.Errorf("ctlsock: unknown status byte %d", buf[0])
	}
}
