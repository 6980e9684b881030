package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgblog/apiserver/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

func TestHashpwFromPipe(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("s3cret\n"))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hashpw", "--cost", "4"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	digest := strings.TrimSpace(out.String())
	assert.True(t, auth.ValidDigest(digest))
	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.True(t, auth.NewHasher(bcrypt.MinCost).Verify("s3cret", digest))
}

func TestHashpwRejectsEmpty(t *testing.T) {
	rootCmd.SetIn(strings.NewReader("\n"))
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"hashpw"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	assert.EqualError(t, rootCmd.Execute(), "password must not be empty")
}
