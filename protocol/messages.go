package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	errStringTooLong = errors.New("protocol: string exceeds 64KB limit")
	errPayloadShort  = errors.New("protocol: payload too short")
	errExtraBytes    = errors.New("protocol: payload has trailing data")
)

// ErrUnknownType reports a frame whose type byte is outside the vocabulary.
var ErrUnknownType = errors.New("protocol: unknown message type")

// Message is the closed set of frames the two processes exchange. Every
// concrete message maps onto exactly one MessageType; the dispatcher relies
// on this being a closed vocabulary, so new messages require coordinated
// changes here and in the Decode switch below.
type Message interface {
	Type() MessageType
}

// FrontendAlive is the liveness proof the front-end sends once, as the first
// message overall, immediately after constructing its side of the pair.
type FrontendAlive struct{}

// BackendReady announces that the back-end finished startup.
type BackendReady struct{}

// MainLoopLaunch acknowledges the handshake; the front-end sends it exactly
// once, just before entering its run loop.
type MainLoopLaunch struct{}

// PageNameRequest asks the front-end which page is currently active.
type PageNameRequest struct{}

// PageName answers a PageNameRequest with the active page's name.
type PageName struct {
	Name string
}

// Exit is the fatal shutdown notice. Reason is optional and best-effort;
// the sender does not wait for it to be read.
type Exit struct {
	Reason string
}

func (FrontendAlive) Type() MessageType   { return MsgFrontendAlive }
func (BackendReady) Type() MessageType    { return MsgBackendReady }
func (MainLoopLaunch) Type() MessageType  { return MsgMainLoopLaunch }
func (PageNameRequest) Type() MessageType { return MsgPageNameRequest }
func (PageName) Type() MessageType        { return MsgPageName }
func (Exit) Type() MessageType            { return MsgExit }

func encodeString(buf *bytes.Buffer, value string) error {
	if len(value) > 0xFFFF {
		return errStringTooLong
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(value))); err != nil {
		return err
	}
	if len(value) > 0 {
		if _, err := buf.WriteString(value); err != nil {
			return err
		}
	}
	return nil
}

func decodeString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, errPayloadShort
	}
	length := binary.LittleEndian.Uint16(b[:2])
	b = b[2:]
	if uint16(len(b)) < length {
		return "", nil, errPayloadShort
	}
	return string(b[:length]), b[length:], nil
}

func EncodePageName(p PageName) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 2+len(p.Name)))
	if err := encodeString(buf, p.Name); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodePageName(b []byte) (PageName, error) {
	var p PageName
	name, rest, err := decodeString(b)
	if err != nil {
		return p, err
	}
	if len(rest) != 0 {
		return p, errExtraBytes
	}
	p.Name = name
	return p, nil
}

// EncodeExit writes an empty payload when no reason is given, matching peers
// that treat the reason as optional.
func EncodeExit(e Exit) ([]byte, error) {
	if e.Reason == "" {
		return nil, nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, 2+len(e.Reason)))
	if err := encodeString(buf, e.Reason); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeExit(b []byte) (Exit, error) {
	var e Exit
	if len(b) == 0 {
		return e, nil
	}
	reason, rest, err := decodeString(b)
	if err != nil {
		return e, err
	}
	if len(rest) != 0 {
		return e, errExtraBytes
	}
	e.Reason = reason
	return e, nil
}

// Encode serialises a message payload. The header type byte is derived from
// the message itself, so callers cannot mismatch tag and payload.
func Encode(m Message) ([]byte, error) {
	switch m := m.(type) {
	case FrontendAlive, BackendReady, MainLoopLaunch, PageNameRequest:
		return nil, nil
	case PageName:
		return EncodePageName(m)
	case Exit:
		return EncodeExit(m)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
}

// Decode turns a frame back into its concrete message. The switch is
// exhaustive over the vocabulary; anything else is a protocol error, never
// silently dropped.
func Decode(t MessageType, payload []byte) (Message, error) {
	switch t {
	case MsgFrontendAlive:
		if len(payload) != 0 {
			return nil, errExtraBytes
		}
		return FrontendAlive{}, nil
	case MsgBackendReady:
		if len(payload) != 0 {
			return nil, errExtraBytes
		}
		return BackendReady{}, nil
	case MsgMainLoopLaunch:
		if len(payload) != 0 {
			return nil, errExtraBytes
		}
		return MainLoopLaunch{}, nil
	case MsgPageNameRequest:
		if len(payload) != 0 {
			return nil, errExtraBytes
		}
		return PageNameRequest{}, nil
	case MsgPageName:
		return DecodePageName(payload)
	case MsgExit:
		return DecodeExit(payload)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
}
