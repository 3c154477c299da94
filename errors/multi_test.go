package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendNil(t *testing.T) {
	err := New("error")
	errs := Append(nil, err)
	require.Equal(t, 1, errs.Len())
	require.Equal(t, err, errs.Slice()[0])

	require.Equal(t, errs, Append(errs, nil))
}

func TestAppendFlattens(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")
	err2 := New("error2")

	var a Errors
	a = Append(a, err0)
	a = Append(a, err1)

	var b Errors
	b = Append(b, err2)

	errs := Append(a, b).Slice()
	require.Len(t, errs, 3)
	require.Equal(t, err0, errs[0])
	require.Equal(t, err1, errs[1])
	require.Equal(t, err2, errs[2])
}

func TestCombine(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")

	require.Nil(t, Combine(nil, nil))
	require.Equal(t, err0, Combine(err0, nil))
	require.Equal(t, err0, Combine(nil, err0))

	errs := Combine(err0, err1).(Errors).Slice()
	require.Len(t, errs, 2)
	require.Equal(t, err0, errs[0])
	require.Equal(t, err1, errs[1])
}

func TestDefer(t *testing.T) {
	run := func() (err error) {
		defer Defer(&err, func() error { return New("close failed") })
		return nil
	}
	require.EqualError(t, run(), "close failed")
}
