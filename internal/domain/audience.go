package domain

import (
	"encoding/json"
	"strings"
)

// Audience is a category of attendees an event targets.
type Audience string

const (
	AudienceStudents      Audience = "students"
	AudienceProfessionals Audience = "professionals"
	AudienceGeneral       Audience = "general"
	AudienceVIP           Audience = "vip"
)

// Audiences lists every audience in canonical order. The index is the bit position
// used by the stored audience mask.
var Audiences = []Audience{AudienceStudents, AudienceProfessionals, AudienceGeneral, AudienceVIP}

// IsValid reports whether a is one of the known audiences.
func (a Audience) IsValid() bool {
	return a.bit() != 0
}

func (a Audience) bit() int {
	for i, known := range Audiences {
		if a == known {
			return 1 << i
		}
	}
	return 0
}

// AudienceSet is a set of audiences. The zero value is an empty set.
type AudienceSet struct {
	bits uint8
}

// NewAudienceSet builds a set from the given audiences, ignoring unknown values.
func NewAudienceSet(audiences ...Audience) AudienceSet {
	var s AudienceSet
	for _, a := range audiences {
		s = s.With(a)
	}
	return s
}

// ParseAudienceSet builds a set from audience names. Unknown names are ignored.
func ParseAudienceSet(names []string) AudienceSet {
	var s AudienceSet
	for _, n := range names {
		s = s.With(Audience(strings.TrimSpace(n)))
	}
	return s
}

// AudienceSetFromMask decodes a stored mask. Bits above position 3 are dropped.
func AudienceSetFromMask(mask int) AudienceSet {
	return AudienceSet{bits: uint8(mask) & 0x0f}
}

// With returns a copy of s that also contains a. Unknown audiences leave s unchanged.
func (s AudienceSet) With(a Audience) AudienceSet {
	s.bits |= uint8(a.bit())
	return s
}

// Has reports whether a is in the set.
func (s AudienceSet) Has(a Audience) bool {
	b := a.bit()
	return b != 0 && int(s.bits)&b != 0
}

// IsEmpty reports whether the set has no members.
func (s AudienceSet) IsEmpty() bool {
	return s.bits == 0
}

// Mask encodes the set as the integer stored in events.audience_mask.
func (s AudienceSet) Mask() int {
	return int(s.bits)
}

// List returns the members in canonical order. Never nil.
func (s AudienceSet) List() []Audience {
	out := make([]Audience, 0, len(Audiences))
	for _, a := range Audiences {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// MarshalJSON encodes the set as its canonical list of names.
func (s AudienceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON accepts a list of names; unknown names are ignored.
func (s *AudienceSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*s = ParseAudienceSet(names)
	return nil
}

// EncodeAudienceMask maps audience names to the bitmask: students=1, professionals=2,
// general=4, vip=8. Unknown names are ignored.
func EncodeAudienceMask(names []string) int {
	return ParseAudienceSet(names).Mask()
}

// DecodeAudienceMask returns the audiences whose bits are set, in canonical order.
func DecodeAudienceMask(mask int) []Audience {
	return AudienceSetFromMask(mask).List()
}
