// Package proto defines the bytes exchanged between the arena and its bots.
//
// After the name handshake every logical event is exactly one byte; there is
// no framing and no length prefix. The codec never reads past the byte it is
// asked to decode.
package proto

import (
	"ctchen222/rps-arena/internal/game"
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// Moves
	Rock    byte = 'r'
	Paper   byte = 'p'
	Scissor byte = 's'

	// Control bytes sent by the server
	NewGame   byte = 'n'
	AbortGame byte = 'e'
	Shutdown  byte = 'x'

	// Keepalive is echoed back unchanged by whoever receives it.
	Keepalive byte = ' '

	// EndMask toggles ASCII case; a move XORed with it marks the final round.
	EndMask byte = 0x20

	// Handshake framing: [len][name][NameTerminator]
	NameTerminator byte = '\n'
	MaxNameLen          = 255
)

var (
	ErrInvalidMove = errors.New("byte is not r, p or s")
	ErrNameTooLong = errors.New("name longer than 255 bytes")
	ErrNameNotUTF8 = errors.New("name invalid utf8")
)

// EncodeMove returns the wire byte for m.
func EncodeMove(m game.Move) byte {
	switch m {
	case game.Paper:
		return Paper
	case game.Scissor:
		return Scissor
	default:
		return Rock
	}
}

// EncodeEndMove returns the wire byte relaying m as the last move of a battle.
func EncodeEndMove(m game.Move) byte {
	return EncodeMove(m) ^ EndMask
}

// DecodeMove parses a played move. Only lowercase r, p and s are accepted.
func DecodeMove(b byte) (game.Move, error) {
	switch b {
	case Rock:
		return game.Rock, nil
	case Paper:
		return game.Paper, nil
	case Scissor:
		return game.Scissor, nil
	}
	return 0, fmt.Errorf("%w: got %d", ErrInvalidMove, b)
}

// IsEnd reports whether b lies in the uppercase range used for final relays.
func IsEnd(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// DecodeRelay parses an opponent move relayed by the server and reports
// whether it closes the battle.
func DecodeRelay(b byte) (m game.Move, final bool, err error) {
	if IsEnd(b) {
		final = true
		b ^= EndMask
	}
	m, err = DecodeMove(b)
	return m, final, err
}

// ValidateName checks the constraints the server enforces on display names.
func ValidateName(name []byte) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if !utf8.Valid(name) {
		return ErrNameNotUTF8
	}
	return nil
}

// EncodeHandshake frames name the way a bot announces itself.
func EncodeHandshake(name string) ([]byte, error) {
	if err := ValidateName([]byte(name)); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(name)+2)
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	buf = append(buf, NameTerminator)
	return buf, nil
}
