// Copyright 2026 The Dagfront Authors
// SPDX-License-Identifier: Apache-2.0

package opstore

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the store message and of each record.
const (
	fieldRecord protowire.Number = 1

	fieldName protowire.Number = 1
	fieldPath protowire.Number = 2
)

// Record is one workspace entry in the store.
type Record struct {
	Name string
	Path string

	// Offset and Length locate the record's complete field encoding
	// (tag, length prefix, and body) within the store file.
	Offset int
	Length int

	// Raw is a copy of the bytes at [Offset, Offset+Length). Passing
	// it to [Store.Restore] puts the record back exactly as it was.
	Raw []byte

	// bodyStart is where the record body begins within Raw. pathStart
	// and pathEnd locate the last path field within Raw; both are -1
	// when the record has no path field.
	bodyStart int
	pathStart int
	pathEnd   int
}

// parseStore decodes every record in data. Top-level fields other than
// records are skipped but must be well formed.
func parseStore(data []byte) ([]Record, error) {
	var records []Record
	seen := make(map[string]bool)
	offset := 0
	for offset < len(data) {
		number, wireType, tagLength := protowire.ConsumeTag(data[offset:])
		if tagLength < 0 {
			return nil, corruptf("offset %d: %v", offset, protowire.ParseError(tagLength))
		}

		if number != fieldRecord {
			valueLength := protowire.ConsumeFieldValue(number, wireType, data[offset+tagLength:])
			if valueLength < 0 {
				return nil, corruptf("offset %d: field %d: %v", offset, number, protowire.ParseError(valueLength))
			}
			offset += tagLength + valueLength
			continue
		}

		if wireType != protowire.BytesType {
			return nil, corruptf("offset %d: record field has wire type %d", offset, wireType)
		}
		body, bodyLength := protowire.ConsumeBytes(data[offset+tagLength:])
		if bodyLength < 0 {
			return nil, corruptf("offset %d: record: %v", offset, protowire.ParseError(bodyLength))
		}
		length := tagLength + bodyLength

		record, err := parseRecord(body)
		if err != nil {
			return nil, corruptf("offset %d: %v", offset, err)
		}
		if seen[record.Name] {
			return nil, corruptf("duplicate record for workspace %q", record.Name)
		}
		seen[record.Name] = true

		// Shift body-relative positions to record-relative ones.
		bodyOffset := length - len(body)
		if record.pathStart >= 0 {
			record.pathStart += bodyOffset
			record.pathEnd += bodyOffset
		}
		record.bodyStart = bodyOffset
		record.Offset = offset
		record.Length = length
		record.Raw = append([]byte(nil), data[offset:offset+length]...)
		records = append(records, record)

		offset += length
	}
	return records, nil
}

// parseRecord decodes one record body. Repeated scalar fields follow
// protobuf semantics: the last occurrence wins.
func parseRecord(body []byte) (Record, error) {
	record := Record{pathStart: -1, pathEnd: -1}
	haveName := false
	offset := 0
	for offset < len(body) {
		number, wireType, tagLength := protowire.ConsumeTag(body[offset:])
		if tagLength < 0 {
			return Record{}, fmt.Errorf("record body: %v", protowire.ParseError(tagLength))
		}
		switch {
		case number == fieldName || number == fieldPath:
			if wireType != protowire.BytesType {
				return Record{}, fmt.Errorf("record field %d has wire type %d", number, wireType)
			}
			value, valueLength := protowire.ConsumeBytes(body[offset+tagLength:])
			if valueLength < 0 {
				return Record{}, fmt.Errorf("record field %d: %v", number, protowire.ParseError(valueLength))
			}
			if number == fieldName {
				record.Name = string(value)
				haveName = true
			} else {
				record.Path = string(value)
				record.pathStart = offset
				record.pathEnd = offset + tagLength + valueLength
			}
			offset += tagLength + valueLength
		default:
			valueLength := protowire.ConsumeFieldValue(number, wireType, body[offset+tagLength:])
			if valueLength < 0 {
				return Record{}, fmt.Errorf("record field %d: %v", number, protowire.ParseError(valueLength))
			}
			offset += tagLength + valueLength
		}
	}
	if !haveName || record.Name == "" {
		return Record{}, fmt.Errorf("record without a workspace name")
	}
	return record, nil
}

// withPath returns the full field encoding of record with its path
// replaced. Only the path field and the length prefix change; a record
// without a path field gets one appended.
func withPath(record Record, path string) []byte {
	body := record.Raw[record.bodyStart:]

	var newBody []byte
	if record.pathStart >= 0 {
		newBody = append(newBody, record.Raw[record.bodyStart:record.pathStart]...)
		newBody = appendString(newBody, fieldPath, path)
		newBody = append(newBody, record.Raw[record.pathEnd:]...)
	} else {
		newBody = append(newBody, body...)
		newBody = appendString(newBody, fieldPath, path)
	}

	encoded := protowire.AppendTag(nil, fieldRecord, protowire.BytesType)
	return protowire.AppendBytes(encoded, newBody)
}

func appendString(buffer []byte, number protowire.Number, value string) []byte {
	buffer = protowire.AppendTag(buffer, number, protowire.BytesType)
	return protowire.AppendString(buffer, value)
}

// AppendRecord appends the encoding of a record with the given name
// and path to buffer.
func AppendRecord(buffer []byte, name, path string) []byte {
	body := appendString(nil, fieldName, name)
	body = appendString(body, fieldPath, path)
	buffer = protowire.AppendTag(buffer, fieldRecord, protowire.BytesType)
	return protowire.AppendBytes(buffer, body)
}

// EncodeRecord returns the encoding of a single record.
func EncodeRecord(name, path string) []byte {
	return AppendRecord(nil, name, path)
}

// Encode returns a store containing the given records in order.
// Records with Raw set are copied verbatim; others are encoded from
// Name and Path.
func Encode(records []Record) []byte {
	var buffer []byte
	for _, record := range records {
		if record.Raw != nil {
			buffer = append(buffer, record.Raw...)
			continue
		}
		buffer = AppendRecord(buffer, record.Name, record.Path)
	}
	return buffer
}
