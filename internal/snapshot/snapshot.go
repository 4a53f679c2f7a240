// Package snapshot keeps a ledger of generated dispatch models so changes in
// dispatch order or conversions between runs can be audited.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/funvibe/sumgen/internal/codegen"
	"github.com/funvibe/sumgen/internal/union"
)

// Entry is the recorded state of one union in one run.
type Entry struct {
	RunID   string `json:"runId"`
	Union   string `json:"union"`
	Package string `json:"package"`

	// Cases are the case identities in dispatch order.
	Cases []string `json:"cases"`

	// Conversions are "argument => variant" pairs in model order.
	Conversions []string `json:"conversions"`

	Fingerprint string    `json:"fingerprint"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// FromModel summarizes a model for the ledger.
func FromModel(pkgPath string, m *union.Model) (Entry, error) {
	fp, err := Fingerprint(m)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Union:       m.Union.ID,
		Package:     pkgPath,
		Cases:       make([]string, len(m.Cases)),
		Conversions: make([]string, len(m.Conversions)),
		Fingerprint: fp,
	}
	for i, c := range m.Cases {
		e.Cases[i] = c.Variant.Type.ID
	}
	for i, c := range m.Conversions {
		e.Conversions[i] = c.Arg.ID + " => " + c.Variant.ID
	}
	return e, nil
}

// Fingerprint hashes the JSON encoding of m together with the code generator
// version, so it changes whenever the generated file would.
func Fingerprint(m *union.Model) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding model %s: %w", m.Union.ID, err)
	}
	h := sha256.New()
	h.Write(data)
	h.Write([]byte("\x00"))
	h.Write([]byte(codegen.Version))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Drift is the difference between two entries of the same union.
type Drift struct {
	Union string

	// OrderChanged is set when cases present in both entries are dispatched
	// in a different relative order.
	OrderChanged bool

	Added, Removed                       []string
	ConversionsAdded, ConversionsRemoved []string
	FingerprintChanged                   bool
}

// Empty reports whether nothing changed.
func (d Drift) Empty() bool {
	return !d.OrderChanged && !d.FingerprintChanged &&
		len(d.Added) == 0 && len(d.Removed) == 0 &&
		len(d.ConversionsAdded) == 0 && len(d.ConversionsRemoved) == 0
}

func (d Drift) String() string {
	if d.Empty() {
		return d.Union + ": unchanged"
	}
	var parts []string
	if d.OrderChanged {
		parts = append(parts, "dispatch order changed")
	}
	if len(d.Added) > 0 {
		parts = append(parts, "added "+strings.Join(d.Added, ", "))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, "removed "+strings.Join(d.Removed, ", "))
	}
	if len(d.ConversionsAdded) > 0 {
		parts = append(parts, "new conversions "+strings.Join(d.ConversionsAdded, ", "))
	}
	if len(d.ConversionsRemoved) > 0 {
		parts = append(parts, "dropped conversions "+strings.Join(d.ConversionsRemoved, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "generated code changed")
	}
	return d.Union + ": " + strings.Join(parts, "; ")
}

// Compare reports how cur differs from prev.
func Compare(prev, cur Entry) Drift {
	d := Drift{
		Union:              cur.Union,
		FingerprintChanged: prev.Fingerprint != cur.Fingerprint,
	}
	d.Added, d.Removed = diff(prev.Cases, cur.Cases)
	d.ConversionsAdded, d.ConversionsRemoved = diff(prev.Conversions, cur.Conversions)

	// Compare the relative order of the cases both entries share.
	shared := func(from, other []string) []string {
		var out []string
		for _, id := range from {
			if slices.Contains(other, id) {
				out = append(out, id)
			}
		}
		return out
	}
	d.OrderChanged = !slices.Equal(shared(prev.Cases, cur.Cases), shared(cur.Cases, prev.Cases))
	return d
}

// diff returns the elements only in b and the elements only in a.
func diff(a, b []string) (added, removed []string) {
	for _, s := range b {
		if !slices.Contains(a, s) {
			added = append(added, s)
		}
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			removed = append(removed, s)
		}
	}
	return added, removed
}
