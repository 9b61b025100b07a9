package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	assert.Equal(t, KindNull, Null().Kind())
	assert.Equal(t, KindBool, Bool(true).Kind())
	assert.Equal(t, KindNumber, Number(3.5).Kind())
	assert.Equal(t, KindString, String("x").Kind())
	assert.Equal(t, KindArray, Array(Number(1)).Kind())
	assert.Equal(t, KindObject, Object(map[string]Value{"a": Null()}).Kind())
}

func TestValueEqual(t *testing.T) {
	nested := Object(map[string]Value{
		"tags": Array(String("a"), String("b")),
		"n":    Number(1),
	})
	assert.True(t, nested.Equal(nested.Clone()))
	assert.False(t, nested.Equal(Object(map[string]Value{"n": Number(1)})))
	assert.False(t, String("a").Equal(Number(1)))
}

func TestValueCloneIsDeep(t *testing.T) {
	original := Object(map[string]Value{"tags": Array(String("a"))})
	cloned := original.Clone()

	obj := original.ObjectVal()
	obj["tags"] = String("mutated")
	assert.True(t, cloned.Equal(Object(map[string]Value{"tags": Array(String("a"))})))
}

func TestValueJSONRoundTrip(t *testing.T) {
	v := Object(map[string]Value{
		"title": String("Buy milk"),
		"done":  Bool(false),
		"count": Number(2),
		"tags":  Array(String("home"), Null()),
	})

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, v.Equal(back))
}

func TestFieldsClone(t *testing.T) {
	f := Fields{"title": String("a")}
	cloned := f.Clone()
	cloned["title"] = String("b")
	assert.Equal(t, "a", f["title"].StringVal())
}

func TestDocumentClone(t *testing.T) {
	now := time.Now().UTC()
	doc := Document{
		ID:         "d1",
		Fields:     Fields{"title": String("a")},
		UpdatedAt:  now,
		Version:    1,
		FieldTimes: map[string]time.Time{"title": now},
	}

	cloned := doc.Clone()
	cloned.Fields["title"] = String("b")
	cloned.FieldTimes["title"] = now.Add(time.Hour)

	assert.Equal(t, "a", doc.Fields["title"].StringVal())
	assert.Equal(t, now, doc.FieldTimes["title"])
	assert.True(t, doc.Equal(doc.Clone()))
}

func TestNewChangeSnapshotsDocument(t *testing.T) {
	now := time.Now().UTC()
	doc := Document{ID: "d1", Fields: Fields{"title": String("a")}, UpdatedAt: now, Version: 1}

	ch := NewChange(OpUpdate, doc, now)
	require.NotEmpty(t, ch.ID)
	assert.Equal(t, "d1", ch.DocumentID)
	assert.Equal(t, OpUpdate, ch.Op)

	// Снимок не видит последующих мутаций документа
	doc.Fields["title"] = String("b")
	assert.Equal(t, "a", ch.Document.Fields["title"].StringVal())

	other := NewChange(OpUpdate, doc, now)
	assert.NotEqual(t, ch.ID, other.ID)
}
