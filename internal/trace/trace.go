// Package trace records what happened in each timestep of a run and
// reduces the record to a stable digest.
//
// Every Step renders to canonical JSON (sorted keys, NFC strings, no floats
// or nulls), so two runs with the same topology, placement and program
// produce byte-identical traces and the same Digest.
package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DomainTrace separates trace digests from any other SHA-256 use.
const DomainTrace = "ionshuttle/trace/v1"

// Move is one committed hop.
type Move struct {
	Ion  int    `json:"ion"`
	From int    `json:"from"`
	To   int    `json:"to"`
	Kind string `json:"kind"`
}

// Firing is an operation executed in the processing zone.
type Firing struct {
	Node     int   `json:"node"`
	Operands []int `json:"operands"`
	Cost     int   `json:"cost"`
}

// Step is the record of one timestep.
type Step struct {
	Seq       int     `json:"seq"`
	Clock     int     `json:"clock"`
	Buffer    int     `json:"buffer"`
	Moves     []Move  `json:"moves"`
	Rollbacks int     `json:"rollbacks"`
	Fired     *Firing `json:"fired,omitempty"`
	// Evicted is the carrier sent back from parking, or -1.
	Evicted   int   `json:"evicted"`
	Parking   []int `json:"parking"`
	Remaining int   `json:"remaining"`
}

// UnmarshalJSON decodes a canonical step. A missing "evicted" key means no
// eviction.
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	p := plain{Evicted: -1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Step(p)
	return nil
}

// Value returns the step as a tree MarshalCanonical accepts. Absent values
// are omitted rather than written as null.
func (s Step) Value() map[string]any {
	moves := make([]any, len(s.Moves))
	for i, m := range s.Moves {
		moves[i] = map[string]any{
			"ion":  m.Ion,
			"from": m.From,
			"to":   m.To,
			"kind": m.Kind,
		}
	}
	parking := s.Parking
	if parking == nil {
		parking = []int{}
	}
	v := map[string]any{
		"seq":       s.Seq,
		"clock":     s.Clock,
		"buffer":    s.Buffer,
		"moves":     moves,
		"rollbacks": s.Rollbacks,
		"parking":   parking,
		"remaining": s.Remaining,
	}
	if s.Fired != nil {
		ops := s.Fired.Operands
		if ops == nil {
			ops = []int{}
		}
		v["fired"] = map[string]any{
			"node":     s.Fired.Node,
			"operands": ops,
			"cost":     s.Fired.Cost,
		}
	}
	if s.Evicted >= 0 {
		v["evicted"] = s.Evicted
	}
	return v
}

// Canonical returns the canonical JSON form of the step.
func (s Step) Canonical() ([]byte, error) {
	b, err := MarshalCanonical(s.Value())
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", s.Seq, err)
	}
	return b, nil
}

// MarshalSteps renders steps as canonical JSON, one step per line.
func MarshalSteps(steps []Step) ([]byte, error) {
	var buf bytes.Buffer
	for _, s := range steps {
		b, err := s.Canonical()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Digest hashes the canonical step list with domain separation:
// SHA256(DomainTrace + 0x00 + canonical).
func Digest(steps []Step) (string, error) {
	list := make([]any, len(steps))
	for i, s := range steps {
		list[i] = s.Value()
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
