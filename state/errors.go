package state

import "errors"

var (
	ErrMalformedPacket  = errors.New("malformed routing packet")
	ErrUnknownNeighbour = errors.New("unknown neighbour")
	ErrInvalidTopology  = errors.New("invalid topology")
)
