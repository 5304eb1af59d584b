package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertText(t *testing.T) {
	tests := []struct {
		name string
		edit func(d *Document)
		want string
	}{
		{
			name: "append",
			edit: func(d *Document) {
				d.InsertText(0, "ab")
				d.InsertText(2, "cd")
			},
			want: "abcd",
		},
		{
			name: "prepend",
			edit: func(d *Document) {
				d.InsertText(0, "world")
				d.InsertText(0, "hello ")
			},
			want: "hello world",
		},
		{
			name: "middle",
			edit: func(d *Document) {
				d.InsertText(0, "ac")
				d.InsertText(1, "b")
			},
			want: "abc",
		},
		{
			name: "offset clamps high",
			edit: func(d *Document) {
				d.InsertText(0, "ab")
				d.InsertText(50, "c")
			},
			want: "abc",
		},
		{
			name: "offset clamps low",
			edit: func(d *Document) {
				d.InsertText(0, "bc")
				d.InsertText(-3, "a")
			},
			want: "abc",
		},
		{
			name: "empty insert is a no-op",
			edit: func(d *Document) {
				d.InsertText(0, "ab")
				d.InsertText(1, "")
			},
			want: "ab",
		},
		{
			name: "multibyte runes",
			edit: func(d *Document) {
				d.InsertText(0, "héllo")
				d.InsertText(2, "ø")
			},
			want: "héøllo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			tt.edit(d)
			assert.Equal(t, tt.want, d.Text())
		})
	}
}

func TestDeleteText(t *testing.T) {
	tests := []struct {
		name       string
		pos, count int
		want       string
	}{
		{name: "middle", pos: 1, count: 2, want: "ad"},
		{name: "front", pos: 0, count: 1, want: "bcd"},
		{name: "tail", pos: 3, count: 1, want: "abc"},
		{name: "count clamps", pos: 2, count: 99, want: "ab"},
		{name: "negative pos clamps", pos: -2, count: 3, want: "bcd"},
		{name: "past end is a no-op", pos: 9, count: 1, want: "abcd"},
		{name: "zero count is a no-op", pos: 1, count: 0, want: "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			d.InsertText(0, "abcd")
			d.DeleteText(tt.pos, tt.count)
			assert.Equal(t, tt.want, d.Text())
		})
	}
}

func TestTextLen_CountsRunes(t *testing.T) {
	d := New()
	d.InsertText(0, "héllø")
	assert.Equal(t, 5, d.TextLen())
}

func TestSetText_MinimalEdit(t *testing.T) {
	d := New()
	d.SetText("abc def")
	before := d.OpCount()

	d.SetText("abc xyz def")
	assert.Equal(t, "abc xyz def", d.Text())
	// Only the differing middle produced ops: 4 inserts, no deletes.
	assert.Equal(t, before+4, d.OpCount())

	d.SetText("abc def")
	assert.Equal(t, "abc def", d.Text())
}

func TestSetText_PreservesConcurrentEdits(t *testing.T) {
	base := New()
	base.SetText("abc def")
	snapshot := base.Save()

	a, err := Load(snapshot)
	require.NoError(t, err)
	b, err := Load(snapshot)
	require.NoError(t, err)

	a.SetText("abc xyz def")
	b.InsertText(b.TextLen(), "!")

	require.NoError(t, a.Merge(b))
	assert.Equal(t, "abc xyz def!", a.Text())

	require.NoError(t, b.Merge(a))
	assert.Equal(t, a.Text(), b.Text())
	assert.Equal(t, a.Save(), b.Save())
}

func TestSetText_FullReplace(t *testing.T) {
	d := New()
	d.SetText("completely old")
	d.SetText("brand new")
	assert.Equal(t, "brand new", d.Text())

	d.SetText("")
	assert.Equal(t, "", d.Text())
	assert.Equal(t, 0, d.TextLen())
}

func TestFields(t *testing.T) {
	d := New()

	_, ok := d.Field("title")
	assert.False(t, ok)

	d.SetField("title", "notes")
	d.SetField("subtitle", "draft")
	d.SetField("title", "final notes")

	got, ok := d.Field("title")
	require.True(t, ok)
	assert.Equal(t, "final notes", got)
	assert.Equal(t, []string{"subtitle", "title"}, d.FieldNames())
}

func TestDeleteSurvivesMerge(t *testing.T) {
	base := New()
	base.SetText("delete me not")
	snapshot := base.Save()

	a, _ := Load(snapshot)
	b, _ := Load(snapshot)

	a.DeleteText(0, 7) // "me not"
	require.NoError(t, b.Merge(a))
	assert.Equal(t, "me not", b.Text())

	// The deletion also wins when the deleter merges in the other copy.
	require.NoError(t, a.Merge(b))
	assert.Equal(t, "me not", a.Text())
}
