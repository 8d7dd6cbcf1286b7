package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEscapeAcceptsBareNumberInRange(t *testing.T) {
	e, err := parseEscape("1")
	require.NoError(t, err)
	require.EqualValues(t, 1, e)

	e, err = parseEscape("26")
	require.NoError(t, err)
	require.EqualValues(t, 26, e)
}

func TestParseEscapeAcceptsCaretNotation(t *testing.T) {
	e, err := parseEscape("^a")
	require.NoError(t, err)
	require.EqualValues(t, 1, e)

	e, err = parseEscape("^Z")
	require.NoError(t, err)
	require.EqualValues(t, 26, e)
}

func TestParseEscapeRejectsOutOfRangeNumber(t *testing.T) {
	_, err := parseEscape("0")
	require.Error(t, err)

	_, err = parseEscape("27")
	require.Error(t, err)

	_, err = parseEscape("-1")
	require.Error(t, err)
}

func TestParseEscapeRejectsInvalidCaretLetter(t *testing.T) {
	_, err := parseEscape("^1")
	require.Error(t, err)
}

func TestParseEscapeRejectsGarbage(t *testing.T) {
	_, err := parseEscape("not-a-number")
	require.Error(t, err)
}
