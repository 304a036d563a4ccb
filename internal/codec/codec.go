package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/causetrail/internal/cause"
)

// Record is the persisted shape of one cause. Upstream records embed the
// snapshot chain inline, mirroring the in-memory tree.
type Record struct {
	Kind    cause.Kind `json:"kind" yaml:"kind"`
	Project string     `json:"project,omitempty" yaml:"project,omitempty"`
	Build   int        `json:"build,omitempty" yaml:"build,omitempty"`
	URL     string     `json:"url,omitempty" yaml:"url,omitempty"`
	UserID  *string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Addr    string     `json:"addr,omitempty" yaml:"addr,omitempty"`
	Note    string     `json:"note,omitempty" yaml:"note,omitempty"`
	Causes  []Record   `json:"causes,omitempty" yaml:"causes,omitempty"`
}

// DecodeError reports a structurally invalid record.
// Path locates the offending record, e.g. "[0].causes[2]".
type DecodeError struct {
	Path    string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Path == "" {
		return "decode chain: " + msg
	}
	return fmt.Sprintf("decode chain at %s: %s", e.Path, msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes a chain to nested, order-preserving JSON.
func Encode(c cause.Chain) ([]byte, error) {
	recs, err := ToRecords(c)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(recs); err != nil {
		return nil, fmt.Errorf("encode chain: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses JSON produced by Encode.
//
// Bounds are not checked: a chain written under a looser policy is returned
// as it was stored. Empty input and "null" decode to an empty chain.
func Decode(data []byte) (cause.Chain, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return cause.Chain{}, nil
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return cause.Chain{}, &DecodeError{Message: "malformed record", Err: err}
	}
	return FromRecords(recs)
}

// ToRecords converts a chain into its record form.
func ToRecords(c cause.Chain) ([]Record, error) {
	recs := make([]Record, 0, c.Len())
	for i, x := range c.All() {
		rec, err := toRecord(x)
		if err != nil {
			return nil, fmt.Errorf("encode chain at [%d]: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func toRecord(x cause.Cause) (Record, error) {
	rec := Record{Kind: x.Kind()}
	switch v := x.(type) {
	case cause.ManualCause:
		rec.Note = v.Note
	case cause.UserIDCause:
		if id, ok := v.UserID(); ok {
			rec.UserID = &id
		}
	case cause.TimerCause, cause.DeeplyNestedCause:
	case cause.RemoteCause:
		rec.Addr = v.Addr
		rec.Note = v.Note
	case cause.SCMCause:
		rec.Note = v.Note
	case cause.UpstreamCause:
		rec.Project = v.Project()
		rec.Build = v.Number()
		rec.URL = v.URL()
		nested, err := ToRecords(v.Causes())
		if err != nil {
			return Record{}, err
		}
		rec.Causes = nested
	default:
		return Record{}, fmt.Errorf("unhandled cause variant %T", x)
	}
	return rec, nil
}

// FromRecords rebuilds a chain from records without applying any policy.
func FromRecords(recs []Record) (cause.Chain, error) {
	return fromRecords(recs, "")
}

func fromRecords(recs []Record, path string) (cause.Chain, error) {
	causes := make([]cause.Cause, 0, len(recs))
	for i, rec := range recs {
		p := path + "[" + strconv.Itoa(i) + "]"
		c, err := fromRecord(rec, p)
		if err != nil {
			return cause.Chain{}, err
		}
		causes = append(causes, c)
	}
	return cause.Restore(causes), nil
}

func fromRecord(rec Record, path string) (cause.Cause, error) {
	switch rec.Kind {
	case cause.KindManual:
		return cause.ManualCause{Note: rec.Note}, nil
	case cause.KindUser:
		if rec.UserID == nil {
			return cause.AnonymousUserCause(), nil
		}
		return cause.UserCause(*rec.UserID), nil
	case cause.KindTimer:
		return cause.TimerCause{}, nil
	case cause.KindRemote:
		return cause.RemoteCause{Addr: rec.Addr, Note: rec.Note}, nil
	case cause.KindSCM:
		return cause.SCMCause{Note: rec.Note}, nil
	case cause.KindDeeplyNested:
		return cause.DeeplyNestedCause{}, nil
	case cause.KindUpstream:
		nested, err := fromRecords(rec.Causes, path+".causes")
		if err != nil {
			return nil, err
		}
		up, err := cause.RestoreUpstream(rec.Project, rec.Build, rec.URL, nested)
		if err != nil {
			return nil, &DecodeError{Path: path, Message: "invalid upstream reference", Err: err}
		}
		return up, nil
	case "":
		return nil, &DecodeError{Path: path, Message: "missing kind"}
	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown kind %q", rec.Kind)}
	}
}
