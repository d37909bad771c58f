package semgrex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileStructure(t *testing.T) {
	pat := MustCompile("{tag:/VB.*/}=v >nsubj {}=s ?>obj ({} >det {word:the})")

	root, ok := pat.Root().(*NodePattern)
	require.True(t, ok)
	assert.Equal(t, RelRoot, root.Reln.Kind)
	assert.Equal(t, "v", root.Name)
	require.Len(t, root.Attrs, 1)
	assert.Equal(t, "tag", root.Attrs[0].Key)

	rels, ok := root.Child.(*CoordinationPattern)
	require.True(t, ok)
	assert.Equal(t, AllOf, rels.Kind)
	require.Len(t, rels.Children, 2)

	obj := rels.Children[1].(*NodePattern)
	assert.True(t, obj.Optional)
	assert.Equal(t, "obj", obj.Reln.Type.String())
	det := obj.Child.(*NodePattern)
	assert.Equal(t, "det", det.Reln.Type.String())
}

func TestCompileNodeCoordination(t *testing.T) {
	pat := MustCompile("{} >x [{word:a} | {word:b} & {tag:c}]")

	coord, ok := pat.Root().(*NodePattern).Child.(*CoordinationPattern)
	require.True(t, ok)
	assert.True(t, coord.NodeCoord)
	assert.Equal(t, AnyOf, coord.Kind)
	require.Len(t, coord.Children, 2)
	assert.Equal(t, RelGovernor, coord.Relation().Kind)

	conj := coord.Children[1].(*CoordinationPattern)
	assert.Equal(t, AllOf, conj.Kind)
	assert.Len(t, conj.Children, 2)
}

func TestCompileLinkTarget(t *testing.T) {
	pat := MustCompile("{}=a >nsubj =b >=r {}")
	rels := pat.Root().(*NodePattern).Child.(*CoordinationPattern)

	link := rels.Children[0].(*NodePattern)
	assert.True(t, link.Link)
	assert.Equal(t, "b", link.Name)
	assert.Equal(t, "", link.Reln.Name)

	named := rels.Children[1].(*NodePattern)
	assert.False(t, named.Link)
	assert.Equal(t, "r", named.Reln.Name)
}

func TestPatternString(t *testing.T) {
	for _, text := range []string{
		"{tag:/VB.*/}=v >nsubj {}=s ?>obj ({} >det {word:the})",
		"{}=n ![>nsubj {} | >obj {}]",
		"{word:saw}=a : {word:today}=b",
		"{} 2,4>> {}=n",
		"{} > [{word:it}=x | {word:today}=x]",
		"[{word:saw}=v | {word:ran}=v] >nsubj {}",
		"{word:\"U.S.\"} >nsubj =x",
		"{lemma:nmod:poss;tag:__} <</^n/i=r {$}",
		"{word:/(\\w+)ing/#1%stem} . !{#}",
		"{}=a @ {}=b",
		"{} >x ([{word:a} | {word:b}] >y {})",
	} {
		pat, err := Compile(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, pat.String())
		assert.Equal(t, text, pat.Text())

		again, err := Compile(pat.String())
		require.NoError(t, err, text)
		assert.Equal(t, pat.String(), again.String())
	}
}

func TestPatternStringNormalizes(t *testing.T) {
	assert.Equal(t, "{} >x {} >y {}", MustCompile("{} >x {} & >y {}").String())
	assert.Equal(t, "{word:dog}", MustCompile("{word: dog}").String())
	assert.Equal(t, "{} !>x {}", MustCompile("{} ![>x {}]").String())
}

func TestCompileErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"{",
		"{} >",
		"{} >nsubj",
		"{}=",
		"{word}",
		"{a:b;a:c}",
		"{} $+nsubj {}",
		"{} .=r {}",
		"{} 0,2>> {}",
		"{} 3,2>> {}",
		"{} 1,2$+ {}",
		"{word:/(/}",
		"{word:/a/#2%v}",
		"[{word:a}",
		"{} >x {} )",
	} {
		_, err := Compile(text)
		require.Error(t, err, text)
		assert.ErrorIs(t, err, ErrPatternParse, text)

		var perr *ParseError
		require.True(t, errors.As(err, &perr), text)
		assert.Equal(t, text, perr.Pattern)
		assert.NotNil(t, perr.Cause())
	}

	assert.Panics(t, func() { MustCompile("{") })
}
