// Package assoc builds the static association table mapping marker identities
// to displayable assets. The table is constructed once at startup from
// configuration and is read-mostly thereafter; only the Instance field of an
// Entry mutates, and only under the reconciler's critical section.
package assoc

import (
	"log/slog"
	"strings"

	"github.com/qrstage/qrstage/internal/config"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/render"
)

// Normalize derives the stable identity key from a raw marker payload:
// surrounding whitespace is trimmed and the result is case-folded. The same
// physical marker must map to the same key across re-detections.
func Normalize(payload string) string {
	return strings.ToLower(strings.TrimSpace(payload))
}

// Entry is one identity → asset association plus its display state.
// Instance is exclusively owned by this entry; no other component may hold a
// strong reference to it.
type Entry struct {
	Identity         string
	AssetRef         string
	PositionOverride core.Position3D
	RotationOverride core.Rotation3D

	// Instance is the currently shown display instance, nil when none.
	// Mutated only under the reconciler lock.
	Instance render.Instance
}

// Table is the identity-keyed association table.
type Table struct {
	entries map[string]*Entry
	order   []string
}

// Build constructs the table from configuration entries. Invalid entries
// (empty identity, empty asset ref) are skipped with a warning; duplicate
// identities are rejected first-wins. Configuration problems are never fatal.
func Build(entries []config.AssociationEntry, log *slog.Logger) *Table {
	t := &Table{entries: make(map[string]*Entry, len(entries))}

	for _, e := range entries {
		identity := Normalize(e.Identity)
		if identity == "" {
			log.Warn("Skipping association with empty identity", "assetRef", e.AssetRef)
			continue
		}
		if e.AssetRef == "" {
			log.Warn("Skipping association with no asset", "identity", identity)
			continue
		}
		if _, dup := t.entries[identity]; dup {
			log.Warn("Skipping duplicate association, first wins", "identity", identity)
			continue
		}
		t.entries[identity] = &Entry{
			Identity:         identity,
			AssetRef:         e.AssetRef,
			PositionOverride: e.PositionOverride,
			RotationOverride: e.RotationOverride,
		}
		t.order = append(t.order, identity)
	}

	return t
}

// Lookup returns the entry for a normalized identity.
func (t *Table) Lookup(identity string) (*Entry, bool) {
	e, ok := t.entries[identity]
	return e, ok
}

// Len returns the number of associations.
func (t *Table) Len() int {
	return len(t.entries)
}

// Identities returns all configured identities in configuration order.
func (t *Table) Identities() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
