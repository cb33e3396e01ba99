// Copyright 2017 Google Inc. All Rights Reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//     http://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ipfix

import (
	"io"
	"iter"

	"github.com/bio-routing/tflow2/convert"
	"github.com/pkg/errors"
)

const (
	// Version is the protocol version carried in every message header
	Version = 10

	// HeaderLength is the size of a message header in bytes
	HeaderLength = 16
)

// Header is the fixed size message header
type Header struct {
	Version             uint16
	Length              uint16
	ExportTime          uint32
	SequenceNumber      uint32
	ObservationDomainID uint32
}

// Message is a decoded IPFIX message. Version and length are not part of it, they are
// implied on decode and computed on encode.
type Message struct {
	ExportTime          uint32
	SequenceNumber      uint32
	ObservationDomainID uint32
	Sets                []Set
}

// DecodeHeader decodes the message header of raw without looking at any set
func DecodeHeader(raw []byte) (Header, error) {
	if len(raw) < HeaderLength {
		return Header{}, newError(int64(len(raw)), io.ErrUnexpectedEOF)
	}

	h := Header{
		Version:             convert.Uint16b(raw[0:2]),
		Length:              convert.Uint16b(raw[2:4]),
		ExportTime:          convert.Uint32b(raw[4:8]),
		SequenceNumber:      convert.Uint32b(raw[8:12]),
		ObservationDomainID: convert.Uint32b(raw[12:16]),
	}

	if h.Version != Version {
		return Header{}, newError(0, errors.Wrapf(ErrVersion, "version %d", h.Version))
	}

	return h, nil
}

// Decode converts raw message bytes into a Message. Sets are read until the end of raw,
// the length field of the header is not consulted. Template and options template
// sets are installed into store while decoding, so data sets may refer to templates
// announced earlier in the same message.
func Decode(raw []byte, store TemplateStore, resolver Resolver) (*Message, error) {
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}

	m := &Message{
		ExportTime:          h.ExportTime,
		SequenceNumber:      h.SequenceNumber,
		ObservationDomainID: h.ObservationDomainID,
	}

	r := newReader(raw)
	r.pos = HeaderLength
	for r.remaining() > 0 {
		s, err := decodeSet(r, store, resolver)
		if err != nil {
			return nil, err
		}

		m.Sets = append(m.Sets, s)
	}

	return m, nil
}

// TemplateRecords iterates over the template records of all sets
func (m *Message) TemplateRecords() iter.Seq[*TemplateRecord] {
	return func(yield func(*TemplateRecord) bool) {
		for _, s := range m.Sets {
			recs, ok := s.Records.(TemplateRecords)
			if !ok {
				continue
			}

			for i := range recs {
				if !yield(&recs[i]) {
					return
				}
			}
		}
	}
}

// OptionsTemplateRecords iterates over the options template records of all sets
func (m *Message) OptionsTemplateRecords() iter.Seq[*OptionsTemplateRecord] {
	return func(yield func(*OptionsTemplateRecord) bool) {
		for _, s := range m.Sets {
			recs, ok := s.Records.(OptionsTemplateRecords)
			if !ok {
				continue
			}

			for i := range recs {
				if !yield(&recs[i]) {
					return
				}
			}
		}
	}
}

// DataRecords iterates over the data records of all sets
func (m *Message) DataRecords() iter.Seq[*DataRecord] {
	return func(yield func(*DataRecord) bool) {
		for d := range m.DataSets() {
			for i := range d.Records {
				if !yield(&d.Records[i]) {
					return
				}
			}
		}
	}
}

// DataSets iterates over the data sets, giving access to the template ID of the records
func (m *Message) DataSets() iter.Seq[DataRecords] {
	return func(yield func(DataRecords) bool) {
		for _, s := range m.Sets {
			recs, ok := s.Records.(DataRecords)
			if !ok {
				continue
			}

			if !yield(recs) {
				return
			}
		}
	}
}

// MessageReader decodes consecutive messages from a stream, framing them by the
// length field of their headers
type MessageReader struct {
	r        io.Reader
	store    TemplateStore
	resolver Resolver
	buf      []byte
}

// NewMessageReader creates a MessageReader
func NewMessageReader(r io.Reader, store TemplateStore, resolver Resolver) *MessageReader {
	return &MessageReader{
		r:        r,
		store:    store,
		resolver: resolver,
		buf:      make([]byte, 0xFFFF),
	}
}

// Next reads and decodes the next message. It returns io.EOF if the stream ends
// at a message boundary.
func (mr *MessageReader) Next() (*Message, error) {
	hdr := mr.buf[:HeaderLength]
	_, err := io.ReadFull(mr.r, hdr)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}

		return nil, newError(0, err)
	}

	h, err := DecodeHeader(hdr)
	if err != nil {
		return nil, err
	}

	if h.Length < HeaderLength {
		return nil, newError(2, errors.Errorf("message length %d is shorter than its header", h.Length))
	}

	raw := mr.buf[:h.Length]
	_, err = io.ReadFull(mr.r, raw[HeaderLength:])
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}

		return nil, newError(HeaderLength, err)
	}

	return Decode(raw, mr.store, mr.resolver)
}
