package main

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ciphera-net/website/internal/faq"
)

func runFAQ(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newFAQCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFAQCommandFilters(t *testing.T) {
	out, err := runFAQ(t, "--file=", "--query", "drop", "--category", "general")
	require.NoError(t, err)

	var got []faq.Category
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "general", got[0].ID)
	for _, e := range got[0].Entries {
		text := strings.ToLower(e.Question + " " + e.Answer)
		require.Contains(t, text, "drop")
	}
}

func TestFAQCommandCount(t *testing.T) {
	out, err := runFAQ(t, "--file=", "--count")
	require.NoError(t, err)
	n, err := strconv.Atoi(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, faq.Count(faq.Default()), n)
}

func TestFAQCommandRejectsUnknownCategory(t *testing.T) {
	_, err := runFAQ(t, "--file=", "--category", "bogus")
	require.ErrorContains(t, err, "unknown category")
}
