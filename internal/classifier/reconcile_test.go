package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ent(typ string, start, end int) PIIEntity {
	return PIIEntity{Type: typ, Start: start, End: end}
}

func assertNonOverlapping(t *testing.T, entities []PIIEntity) {
	t.Helper()
	for i := 1; i < len(entities); i++ {
		assert.LessOrEqual(t, entities[i-1].Start, entities[i].Start, "sorted by start")
		assert.LessOrEqual(t, entities[i-1].End, entities[i].Start, "entities %d and %d overlap", i-1, i)
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]PIIEntity
		want  []PIIEntity
	}{
		{
			name:  "empty",
			lists: nil,
			want:  nil,
		},
		{
			name:  "disjoint lists are merged and sorted",
			lists: [][]PIIEntity{{ent("email", 20, 30)}, {ent("name", 0, 5)}},
			want:  []PIIEntity{ent("name", 0, 5), ent("email", 20, 30)},
		},
		{
			name:  "adjacent spans both survive",
			lists: [][]PIIEntity{{ent("email", 0, 5), ent("email", 5, 9)}},
			want:  []PIIEntity{ent("email", 0, 5), ent("email", 5, 9)},
		},
		{
			name:  "overlapping later start is dropped",
			lists: [][]PIIEntity{{ent("file", 0, 10)}, {ent("name", 4, 8)}},
			want:  []PIIEntity{ent("file", 0, 10)},
		},
		{
			name:  "leftmost wins even when shorter",
			lists: [][]PIIEntity{{ent("file", 3, 20)}, {ent("name", 0, 5)}},
			want:  []PIIEntity{ent("name", 0, 5)},
		},
		{
			name:  "drop compares against last accepted only",
			lists: [][]PIIEntity{{ent("a", 0, 10), ent("b", 5, 30), ent("c", 12, 14)}},
			want:  []PIIEntity{ent("a", 0, 10), ent("c", 12, 14)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.lists...)
			assert.Equal(t, tt.want, got)
			assertNonOverlapping(t, got)
		})
	}
}

// Equal starts fall back to concatenation order: structured detectors are
// passed before names, so they win ties regardless of span length.
func TestReconcile_EqualStartTieBreakIsListOrder(t *testing.T) {
	structured := []PIIEntity{ent(TypeEmail, 0, 7)}
	names := []PIIEntity{ent(TypeName, 0, 3)}

	got := Reconcile(structured, names)
	require.Len(t, got, 1)
	assert.Equal(t, TypeEmail, got[0].Type)

	got = Reconcile(names, structured)
	require.Len(t, got, 1)
	assert.Equal(t, TypeName, got[0].Type)
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	a := []PIIEntity{ent("x", 10, 12), ent("x", 0, 2)}
	_ = Reconcile(a)
	assert.Equal(t, 10, a[0].Start, "input slices keep their order")
}

func TestReconcile_ManyDetectorsStayDisjoint(t *testing.T) {
	text := "Jane Doe <jane@example.com> shared /home/jane/report.pdf with Jane"
	emails := DetectEmails(text)
	files := DetectFilePaths(text)
	names := []PIIEntity{ent(TypeName, 0, 4), ent(TypeName, 5, 8), ent(TypeName, 10, 14), ent(TypeName, 62, 66)}

	got := Reconcile(emails, files, names)
	assertNonOverlapping(t, got)

	var types []string
	for _, e := range got {
		types = append(types, e.Type)
	}
	// "jane" inside the email (10..14) loses to the email starting at 10.
	assert.Equal(t, []string{TypeName, TypeName, TypeEmail, TypeFile, TypeName}, types)
}
