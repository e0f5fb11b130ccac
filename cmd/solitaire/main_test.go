package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"solitaire-cipher/backend/internal/solitaire"

	"github.com/stretchr/testify/require"
)

func writeDeck(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestEncryptDecrypt(t *testing.T) {
	deck := writeDeck(t, solitaire.OrderedDeck().String()+"\n")

	out, err := execute(t, "", "encrypt", "--deck", deck, "--message", "Hello, World!")
	require.NoError(t, err)
	require.Equal(t, "LBVJWVFXRU", out)

	out, err = execute(t, "LBVJWVFXRU\n", "decrypt", "--deck", deck)
	require.NoError(t, err)
	require.Equal(t, "HELLOWORLD", out)

	_, err = execute(t, "", "decrypt", "--deck", deck, "-m", "LBVJ WVFXRU")
	require.ErrorIs(t, err, solitaire.ErrInvalidCiphertext)

	out, err = execute(t, "", "decrypt", "--deck", deck, "-m", "LBVJ WVFXRU", "--policy", "pass")
	require.NoError(t, err)
	require.Equal(t, "HELL OWORLD", out)
}

func TestKeystream(t *testing.T) {
	deck := writeDeck(t, strings.ReplaceAll(solitaire.OrderedDeck().String(), " ", "\n"))
	out, err := execute(t, "", "keystream", "-d", deck, "-n", "10")
	require.NoError(t, err)
	require.Equal(t, "4 23 10 24 8 25 17 6 6 17", out)

	_, err = execute(t, "", "keystream", "-d", deck, "-n", "0")
	require.Error(t, err)
}

func TestDeckSeeded(t *testing.T) {
	a, err := execute(t, "", "deck", "--seed", "42")
	require.NoError(t, err)
	b, err := execute(t, "", "deck", "--seed", "42")
	require.NoError(t, err)
	require.Equal(t, a, b)

	_, err = solitaire.ParseDeck(a)
	require.NoError(t, err)
}

func TestBadDeckFile(t *testing.T) {
	_, err := execute(t, "", "encrypt", "--deck", writeDeck(t, "1 2 3"), "-m", "abc")
	require.ErrorIs(t, err, solitaire.ErrMalformedDeck)

	_, err = execute(t, "", "encrypt", "--deck", filepath.Join(t.TempDir(), "missing"), "-m", "abc")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "", "encrypt", "-m", "abc")
	require.Error(t, err)
}
