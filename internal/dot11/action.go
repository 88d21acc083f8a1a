package dot11

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket/layers"
)

// CategoryBlockAck is the action category of ADDBA/DELBA frames.
const CategoryBlockAck uint8 = 3

// BlockAckAction is the action code within the Block Ack category.
type BlockAckAction uint8

const (
	ActionAddBARequest  BlockAckAction = 0
	ActionAddBAResponse BlockAckAction = 1
	ActionDelBA         BlockAckAction = 2
)

func (a BlockAckAction) String() string {
	switch a {
	case ActionAddBARequest:
		return "ADDBA-Request"
	case ActionAddBAResponse:
		return "ADDBA-Response"
	case ActionDelBA:
		return "DELBA"
	}
	return fmt.Sprintf("BlockAckAction(%d)", uint8(a))
}

// BlockAckParams is the Block Ack parameter set.
type BlockAckParams struct {
	AmsduSupported bool
	Immediate      bool
	TID            uint8
	BufferSize     uint16 // 10 bits
}

func (p BlockAckParams) pack() uint16 {
	var v uint16
	if p.AmsduSupported {
		v |= 1
	}
	if p.Immediate {
		v |= 1 << 1
	}
	v |= uint16(p.TID&0x0f) << 2
	v |= (p.BufferSize & 0x3ff) << 6
	return v
}

func unpackBlockAckParams(v uint16) BlockAckParams {
	return BlockAckParams{
		AmsduSupported: v&1 != 0,
		Immediate:      v&(1<<1) != 0,
		TID:            uint8(v>>2) & 0x0f,
		BufferSize:     v >> 6,
	}
}

// AddBARequest is an ADDBA request action body.
type AddBARequest struct {
	DialogToken      uint8
	Params           BlockAckParams
	Timeout          uint16 // time units
	StartingSequence uint16
}

// AddBAResponse is an ADDBA response action body.
type AddBAResponse struct {
	DialogToken uint8
	Status      layers.Dot11Status
	Params      BlockAckParams
	Timeout     uint16
}

// DelBA is a DELBA action body.
type DelBA struct {
	Initiator bool
	TID       uint8
	Reason    layers.Dot11Reason
}

// Encode serializes the ADDBA request including category and action.
func (r AddBARequest) Encode() []byte {
	b := make([]byte, 9)
	b[0] = CategoryBlockAck
	b[1] = uint8(ActionAddBARequest)
	b[2] = r.DialogToken
	binary.LittleEndian.PutUint16(b[3:], r.Params.pack())
	binary.LittleEndian.PutUint16(b[5:], r.Timeout)
	binary.LittleEndian.PutUint16(b[7:], (r.StartingSequence&0x0fff)<<4)
	return b
}

// Encode serializes the ADDBA response including category and action.
func (r AddBAResponse) Encode() []byte {
	b := make([]byte, 9)
	b[0] = CategoryBlockAck
	b[1] = uint8(ActionAddBAResponse)
	b[2] = r.DialogToken
	binary.LittleEndian.PutUint16(b[3:], uint16(r.Status))
	binary.LittleEndian.PutUint16(b[5:], r.Params.pack())
	binary.LittleEndian.PutUint16(b[7:], r.Timeout)
	return b
}

// Encode serializes the DELBA including category and action.
func (d DelBA) Encode() []byte {
	b := make([]byte, 6)
	b[0] = CategoryBlockAck
	b[1] = uint8(ActionDelBA)
	var params uint16
	if d.Initiator {
		params |= 1 << 11
	}
	params |= uint16(d.TID&0x0f) << 12
	binary.LittleEndian.PutUint16(b[2:], params)
	binary.LittleEndian.PutUint16(b[4:], uint16(d.Reason))
	return b
}

// ActionHeader returns the category and action code of an action body.
func ActionHeader(body []byte) (category, action uint8, err error) {
	if len(body) < 2 {
		return 0, 0, fmt.Errorf("%w: action body of %d bytes", ErrMalformedFrame, len(body))
	}
	return body[0], body[1], nil
}

func checkBlockAckAction(body []byte, want BlockAckAction, n int) error {
	cat, act, err := ActionHeader(body)
	if err != nil {
		return err
	}
	if cat != CategoryBlockAck || BlockAckAction(act) != want {
		return fmt.Errorf("%w: expected %s, got category %d action %d", ErrMalformedFrame, want, cat, act)
	}
	if len(body) < n {
		return fmt.Errorf("%w: %s body of %d bytes", ErrMalformedFrame, want, len(body))
	}
	return nil
}

// ParseAddBARequest decodes an ADDBA request action body.
func ParseAddBARequest(body []byte) (AddBARequest, error) {
	if err := checkBlockAckAction(body, ActionAddBARequest, 9); err != nil {
		return AddBARequest{}, err
	}
	return AddBARequest{
		DialogToken:      body[2],
		Params:           unpackBlockAckParams(binary.LittleEndian.Uint16(body[3:])),
		Timeout:          binary.LittleEndian.Uint16(body[5:]),
		StartingSequence: binary.LittleEndian.Uint16(body[7:]) >> 4,
	}, nil
}

// ParseAddBAResponse decodes an ADDBA response action body.
func ParseAddBAResponse(body []byte) (AddBAResponse, error) {
	if err := checkBlockAckAction(body, ActionAddBAResponse, 9); err != nil {
		return AddBAResponse{}, err
	}
	return AddBAResponse{
		DialogToken: body[2],
		Status:      layers.Dot11Status(binary.LittleEndian.Uint16(body[3:])),
		Params:      unpackBlockAckParams(binary.LittleEndian.Uint16(body[5:])),
		Timeout:     binary.LittleEndian.Uint16(body[7:]),
	}, nil
}

// ParseDelBA decodes a DELBA action body.
func ParseDelBA(body []byte) (DelBA, error) {
	if err := checkBlockAckAction(body, ActionDelBA, 6); err != nil {
		return DelBA{}, err
	}
	params := binary.LittleEndian.Uint16(body[2:])
	return DelBA{
		Initiator: params&(1<<11) != 0,
		TID:       uint8(params >> 12),
		Reason:    layers.Dot11Reason(binary.LittleEndian.Uint16(body[4:])),
	}, nil
}
