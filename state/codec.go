package state

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout, protobuf compatible:
//
//	message RoutingPacket {
//	  uint32 source = 1;
//	  uint32 dest = 2;
//	  repeated uint32 min_cost = 3; // packed
//	  fixed64 checksum = 4;
//	}
//
// checksum is the xxhash of every byte that precedes its tag, and must be the
// last field of the message.
const (
	fieldSource   protowire.Number = 1
	fieldDest     protowire.Number = 2
	fieldMinCost  protowire.Number = 3
	fieldChecksum protowire.Number = 4
)

func MarshalPacket(p RoutingPacket) []byte {
	return sealPacket(appendPacketBody(make([]byte, 0, 20+len(p.MinCost)*2), p))
}

func appendPacketBody(b []byte, p RoutingPacket) []byte {
	b = protowire.AppendTag(b, fieldSource, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Source))
	b = protowire.AppendTag(b, fieldDest, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Dest))

	packed := make([]byte, 0, len(p.MinCost)*2)
	for _, c := range p.MinCost {
		packed = protowire.AppendVarint(packed, uint64(c))
	}
	b = protowire.AppendTag(b, fieldMinCost, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	return b
}

func sealPacket(body []byte) []byte {
	sum := xxhash.Sum64(body)
	b := protowire.AppendTag(body, fieldChecksum, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, sum)
}

func UnmarshalPacket(data []byte) (RoutingPacket, error) {
	var p RoutingPacket
	var seenSrc, seenDst, sealed bool
	b := data
	for len(b) > 0 {
		if sealed {
			return p, fmt.Errorf("%w: %d trailing bytes after checksum", ErrMalformedPacket, len(b))
		}
		body := data[:len(data)-len(b)]
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("%w: %v", ErrMalformedPacket, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldSource && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("%w: source: %v", ErrMalformedPacket, protowire.ParseError(n))
			}
			p.Source = NodeId(v)
			seenSrc = true
			b = b[n:]
		case num == fieldDest && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("%w: dest: %v", ErrMalformedPacket, protowire.ParseError(n))
			}
			p.Dest = NodeId(v)
			seenDst = true
			b = b[n:]
		case num == fieldMinCost && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return p, fmt.Errorf("%w: min_cost: %v", ErrMalformedPacket, protowire.ParseError(n))
			}
			b = b[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return p, fmt.Errorf("%w: min_cost: %v", ErrMalformedPacket, protowire.ParseError(m))
				}
				if v > uint64(INF) {
					return p, fmt.Errorf("%w: cost %d exceeds %d", ErrMalformedPacket, v, INF)
				}
				p.MinCost = append(p.MinCost, uint32(v))
				packed = packed[m:]
			}
		case num == fieldChecksum && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return p, fmt.Errorf("%w: checksum: %v", ErrMalformedPacket, protowire.ParseError(n))
			}
			if sum := xxhash.Sum64(body); v != sum {
				return p, fmt.Errorf("%w: checksum %016x, computed %016x", ErrMalformedPacket, v, sum)
			}
			sealed = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("%w: field %d: %v", ErrMalformedPacket, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !sealed {
		return p, fmt.Errorf("%w: missing checksum", ErrMalformedPacket)
	}
	if !seenSrc || !seenDst {
		return p, fmt.Errorf("%w: missing source or dest", ErrMalformedPacket)
	}
	return p, nil
}
