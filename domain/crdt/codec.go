package crdt

import (
	"bytes"
	"encoding/json"

	pkgerrors "github.com/joeleaver/pimble/pkg/errors"
)

// formatVersion is the envelope format this build reads and writes.
const formatVersion = 1

// Envelope magics. Documents and change-sets share the layout but are not
// interchangeable.
var (
	magicDocument = []byte("PMBL")
	magicChanges  = []byte("PMBC")
)

const headerLen = 5 // magic + format byte

// envelope is the JSON payload behind the header. Struct field order is
// fixed, and Save sorts the ops, so encoding is canonical.
type envelope struct {
	Format int  `json:"format"`
	Ops    []Op `json:"ops"`
}

func encodeEnvelope(ops []Op, magic []byte, format byte) []byte {
	payload, err := json.Marshal(envelope{Format: int(format), Ops: ops})
	if err != nil {
		// Ops hold nothing json.Marshal can reject.
		panic(err)
	}
	out := make([]byte, 0, headerLen+len(payload))
	out = append(out, magic...)
	out = append(out, format)
	return append(out, payload...)
}

func decodeEnvelope(data []byte, magic []byte) ([]Op, byte, error) {
	if len(data) < headerLen {
		return nil, 0, pkgerrors.NewDecodeError("document bytes", errTruncated)
	}
	if !bytes.Equal(data[:4], magic) {
		return nil, 0, pkgerrors.NewDecodeError("document bytes", errBadMagic)
	}
	format := data[4]
	if format == 0 || format > formatVersion {
		return nil, 0, pkgerrors.NewDecodeError("document bytes",
			pkgerrors.NewVersionMismatchError(int(format), formatVersion))
	}

	var env envelope
	if err := json.Unmarshal(data[headerLen:], &env); err != nil {
		return nil, 0, pkgerrors.NewDecodeError("document bytes", err)
	}
	if env.Format != int(format) {
		return nil, 0, pkgerrors.NewDecodeError("document bytes", errHeaderMismatch)
	}
	for _, op := range env.Ops {
		if err := validateOp(op); err != nil {
			return nil, 0, pkgerrors.NewDecodeError("document bytes", err)
		}
	}
	return env.Ops, format, nil
}

func validateOp(op Op) error {
	if op.ID.IsZero() || op.Lamport == 0 {
		return errInvalidOp
	}
	switch op.Kind {
	case OpSet:
		if op.Field == "" {
			return errInvalidOp
		}
	case OpInsert:
		if op.Value == "" {
			return errInvalidOp
		}
	case OpDelete:
		if op.Origin.IsZero() {
			return errInvalidOp
		}
	default:
		return errInvalidOp
	}
	return nil
}

type codecError string

func (e codecError) Error() string { return string(e) }

const (
	errTruncated      codecError = "truncated envelope"
	errBadMagic       codecError = "unrecognized magic bytes"
	errHeaderMismatch codecError = "header and payload format disagree"
	errInvalidOp      codecError = "invalid operation record"
)
