package demand

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanDocument(t *testing.T) {
	doc := mustParse(t, `info:
  id: a
  version: 1.2.3
requires:
  b: "^1.0"
  c: ""
windows and not arm:
  requires:
    d: ">=2, <3"
`)
	assert.Empty(t, Validate(doc))
}

func TestValidate_ParseErrorIsDocumentRelative(t *testing.T) {
	doc := mustParse(t, `info:
  id: a
  version: 1.0.0
foo or (bar:100):
  message: x
`)
	errs := Validate(doc)
	require.Len(t, errs, 1)

	e := errs[0]
	assert.Equal(t, ValCatParse, e.Category)
	assert.Equal(t, "foo or (bar:100)", e.Query)
	assert.Equal(t, 4, e.Line)
	assert.Equal(t, 5, e.Column)
	assert.True(t, errors.Is(&e, ErrInvalidQuery))
	assert.Contains(t, e.Error(), `doc.yaml:4:5:`)
	assert.Contains(t, e.Error(), `found "or"`)
}

func TestValidate_QuotedKeyColumn(t *testing.T) {
	doc := mustParse(t, "info:\n  id: a\n  version: 1.0.0\n\"x & y\":\n  message: x\n")
	errs := Validate(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, 4, errs[0].Line)
	assert.Equal(t, 4, errs[0].Column)
}

func TestValidate_DuplicateKey(t *testing.T) {
	doc := mustParse(t, `info:
  id: a
  version: 1.0.0
windows:
  message: one
linux:
  message: two
windows:
  message: three
`)
	errs := Validate(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, ValCatDuplicateKey, errs[0].Category)
	assert.Equal(t, 8, errs[0].Line)
	assert.True(t, errors.Is(&errs[0], ErrDuplicateKey))
	assert.Contains(t, errs[0].Error(), "already defined at line 4")
}

func TestValidate_InfoAndRanges(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []ValidationCategory
	}{
		{
			name: "missing id and version",
			src:  "message: hi\n",
			want: []ValidationCategory{ValCatMissingField, ValCatMissingField},
		},
		{
			name: "bad version",
			src:  "info:\n  id: a\n  version: twelve\n",
			want: []ValidationCategory{ValCatInvalidVersion},
		},
		{
			name: "bad global range",
			src:  "info:\n  id: a\n  version: 1.0.0\nrequires:\n  b: banana\n",
			want: []ValidationCategory{ValCatInvalidRange},
		},
		{
			name: "bad conditional range",
			src:  "info:\n  id: a\n  version: 1.0.0\nwindows:\n  requires:\n    b: \">>2\"\n",
			want: []ValidationCategory{ValCatInvalidRange},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(mustParse(t, tt.src))
			var got []ValidationCategory
			for _, e := range errs {
				got = append(got, e.Category)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAnyVersion(t *testing.T) {
	assert.True(t, IsAnyVersion(""))
	assert.True(t, IsAnyVersion("*"))
	assert.False(t, IsAnyVersion("^1"))
}
