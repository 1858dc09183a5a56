// Package pb holds the wire messages of extended headers as laid out in extended_header.proto.
package pb

import (
	"errors"
	"fmt"
	"io"
	math_bits "math/bits"

	types "github.com/cometbft/cometbft/proto/tendermint/types"
	proto "github.com/cosmos/gogoproto/proto"
)

var (
	ErrInvalidLength = errors.New("proto: negative length found during unmarshaling")
	ErrIntOverflow   = errors.New("proto: integer overflow")
)

type DataAvailabilityHeader struct {
	RowRoots    [][]byte `protobuf:"bytes,1,rep,name=row_roots,json=rowRoots,proto3" json:"row_roots,omitempty"`
	ColumnRoots [][]byte `protobuf:"bytes,2,rep,name=column_roots,json=columnRoots,proto3" json:"column_roots,omitempty"`
}

func (m *DataAvailabilityHeader) Reset()         { *m = DataAvailabilityHeader{} }
func (m *DataAvailabilityHeader) String() string { return proto.CompactTextString(m) }
func (*DataAvailabilityHeader) ProtoMessage()    {}

type ExtendedHeader struct {
	Header       *types.Header           `protobuf:"bytes,1,opt,name=header,proto3" json:"header,omitempty"`
	Commit       *types.Commit           `protobuf:"bytes,2,opt,name=commit,proto3" json:"commit,omitempty"`
	ValidatorSet *types.ValidatorSet     `protobuf:"bytes,3,opt,name=validator_set,json=validatorSet,proto3" json:"validator_set,omitempty"`
	Dah          *DataAvailabilityHeader `protobuf:"bytes,4,opt,name=dah,proto3" json:"dah,omitempty"`
}

func (m *ExtendedHeader) Reset()         { *m = ExtendedHeader{} }
func (m *ExtendedHeader) String() string { return proto.CompactTextString(m) }
func (*ExtendedHeader) ProtoMessage()    {}

func (m *DataAvailabilityHeader) Marshal() (dAtA []byte, err error) {
	size := m.Size()
	dAtA = make([]byte, size)
	n, err := m.MarshalToSizedBuffer(dAtA[:size])
	if err != nil {
		return nil, err
	}
	return dAtA[:n], nil
}

func (m *DataAvailabilityHeader) MarshalToSizedBuffer(dAtA []byte) (int, error) {
	i := len(dAtA)
	for iNdEx := len(m.ColumnRoots) - 1; iNdEx >= 0; iNdEx-- {
		i -= len(m.ColumnRoots[iNdEx])
		copy(dAtA[i:], m.ColumnRoots[iNdEx])
		i = encodeVarint(dAtA, i, uint64(len(m.ColumnRoots[iNdEx])))
		i--
		dAtA[i] = 0x12
	}
	for iNdEx := len(m.RowRoots) - 1; iNdEx >= 0; iNdEx-- {
		i -= len(m.RowRoots[iNdEx])
		copy(dAtA[i:], m.RowRoots[iNdEx])
		i = encodeVarint(dAtA, i, uint64(len(m.RowRoots[iNdEx])))
		i--
		dAtA[i] = 0xa
	}
	return len(dAtA) - i, nil
}

func (m *DataAvailabilityHeader) Size() (n int) {
	if m == nil {
		return 0
	}
	for _, b := range m.RowRoots {
		l := len(b)
		n += 1 + l + sov(uint64(l))
	}
	for _, b := range m.ColumnRoots {
		l := len(b)
		n += 1 + l + sov(uint64(l))
	}
	return n
}

func (m *DataAvailabilityHeader) Unmarshal(dAtA []byte) error {
	return unmarshalFields(dAtA, "DataAvailabilityHeader", func(fieldNum int32, wireType int, val []byte) error {
		switch fieldNum {
		case 1:
			if wireType != 2 {
				return fmt.Errorf("proto: wrong wireType = %d for field RowRoots", wireType)
			}
			m.RowRoots = append(m.RowRoots, append([]byte{}, val...))
		case 2:
			if wireType != 2 {
				return fmt.Errorf("proto: wrong wireType = %d for field ColumnRoots", wireType)
			}
			m.ColumnRoots = append(m.ColumnRoots, append([]byte{}, val...))
		}
		return nil
	})
}

func (m *ExtendedHeader) Marshal() (dAtA []byte, err error) {
	size := m.Size()
	dAtA = make([]byte, size)
	n, err := m.MarshalToSizedBuffer(dAtA[:size])
	if err != nil {
		return nil, err
	}
	return dAtA[:n], nil
}

func (m *ExtendedHeader) MarshalToSizedBuffer(dAtA []byte) (int, error) {
	i := len(dAtA)
	if m.Dah != nil {
		size, err := m.Dah.MarshalToSizedBuffer(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i -= size
		i = encodeVarint(dAtA, i, uint64(size))
		i--
		dAtA[i] = 0x22
	}
	if m.ValidatorSet != nil {
		size, err := m.ValidatorSet.MarshalToSizedBuffer(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i -= size
		i = encodeVarint(dAtA, i, uint64(size))
		i--
		dAtA[i] = 0x1a
	}
	if m.Commit != nil {
		size, err := m.Commit.MarshalToSizedBuffer(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i -= size
		i = encodeVarint(dAtA, i, uint64(size))
		i--
		dAtA[i] = 0x12
	}
	if m.Header != nil {
		size, err := m.Header.MarshalToSizedBuffer(dAtA[:i])
		if err != nil {
			return 0, err
		}
		i -= size
		i = encodeVarint(dAtA, i, uint64(size))
		i--
		dAtA[i] = 0xa
	}
	return len(dAtA) - i, nil
}

func (m *ExtendedHeader) Size() (n int) {
	if m == nil {
		return 0
	}
	var l int
	if m.Header != nil {
		l = m.Header.Size()
		n += 1 + l + sov(uint64(l))
	}
	if m.Commit != nil {
		l = m.Commit.Size()
		n += 1 + l + sov(uint64(l))
	}
	if m.ValidatorSet != nil {
		l = m.ValidatorSet.Size()
		n += 1 + l + sov(uint64(l))
	}
	if m.Dah != nil {
		l = m.Dah.Size()
		n += 1 + l + sov(uint64(l))
	}
	return n
}

func (m *ExtendedHeader) Unmarshal(dAtA []byte) error {
	return unmarshalFields(dAtA, "ExtendedHeader", func(fieldNum int32, wireType int, val []byte) error {
		if fieldNum > 4 {
			return nil
		}
		if wireType != 2 {
			return fmt.Errorf("proto: wrong wireType = %d for field %d", wireType, fieldNum)
		}

		switch fieldNum {
		case 1:
			m.Header = &types.Header{}
			return m.Header.Unmarshal(val)
		case 2:
			m.Commit = &types.Commit{}
			return m.Commit.Unmarshal(val)
		case 3:
			m.ValidatorSet = &types.ValidatorSet{}
			return m.ValidatorSet.Unmarshal(val)
		default:
			m.Dah = &DataAvailabilityHeader{}
			return m.Dah.Unmarshal(val)
		}
	})
}

// unmarshalFields walks the fields of a message. Every field is handed to fn, length-delimited
// ones with their value. fn ignores the fields it does not know.
func unmarshalFields(dAtA []byte, msg string, fn func(fieldNum int32, wireType int, val []byte) error) error {
	l := len(dAtA)
	iNdEx := 0
	for iNdEx < l {
		wire, n, err := decodeVarint(dAtA[iNdEx:])
		if err != nil {
			return err
		}
		iNdEx += n
		fieldNum := int32(wire >> 3)
		wireType := int(wire & 0x7)
		if wireType == 4 {
			return fmt.Errorf("proto: %s: wiretype end group for non-group", msg)
		}
		if fieldNum <= 0 {
			return fmt.Errorf("proto: %s: illegal tag %d (wire type %d)", msg, fieldNum, wire)
		}

		var val []byte
		switch wireType {
		case 0:
			_, n, err = decodeVarint(dAtA[iNdEx:])
			if err != nil {
				return err
			}
		case 1:
			n = 8
		case 2:
			length, ln, err := decodeVarint(dAtA[iNdEx:])
			if err != nil {
				return err
			}
			if int(length) < 0 || ln+int(length) < 0 {
				return ErrInvalidLength
			}
			iNdEx += ln
			n = int(length)
		case 5:
			n = 4
		default:
			return fmt.Errorf("proto: %s: unsupported wire type %d for field %d", msg, wireType, fieldNum)
		}
		postIndex := iNdEx + n
		if postIndex < 0 {
			return ErrInvalidLength
		}
		if postIndex > l {
			return io.ErrUnexpectedEOF
		}
		if wireType == 2 {
			val = dAtA[iNdEx:postIndex]
		}

		if err = fn(fieldNum, wireType, val); err != nil {
			return err
		}
		iNdEx = postIndex
	}
	return nil
}

func decodeVarint(dAtA []byte) (uint64, int, error) {
	var v uint64
	for i, shift := 0, uint(0); ; shift += 7 {
		if shift >= 64 {
			return 0, 0, ErrIntOverflow
		}
		if i >= len(dAtA) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b := dAtA[i]
		i++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, i, nil
		}
	}
}

func encodeVarint(dAtA []byte, offset int, v uint64) int {
	offset -= sov(v)
	base := offset
	for v >= 1<<7 {
		dAtA[offset] = uint8(v&0x7f | 0x80)
		v >>= 7
		offset++
	}
	dAtA[offset] = uint8(v)
	return base
}

func sov(x uint64) (n int) {
	return (math_bits.Len64(x|1) + 6) / 7
}
