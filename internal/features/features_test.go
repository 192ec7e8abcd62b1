package features_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nokotan/wasminspect/internal/features"
)

func TestNewDefault_EnablesEveryKnownFeature(t *testing.T) {
	s := features.NewDefault()
	require.True(t, s.Have(features.SIMD))
	require.True(t, s.Have(features.Threads))
	require.True(t, s.Have(features.BulkMemory))
	require.False(t, s.Have("not-a-real-feature"))
}

func TestEnableDisable(t *testing.T) {
	s := &features.Set{}
	s.Enable(features.SIMD, "bogus")
	require.True(t, s.Have(features.SIMD))
	require.False(t, s.Have("bogus"))

	s.Disable(features.SIMD)
	require.False(t, s.Have(features.SIMD))
}

func TestFromEnvironment_DefaultsToFullSetWhenUnset(t *testing.T) {
	t.Setenv(features.EnvVarName, "")
	s := features.FromEnvironment()
	require.True(t, s.Have(features.SIMD))
}

func TestFromEnvironment_RestrictsToListedFeatures(t *testing.T) {
	t.Setenv(features.EnvVarName, features.BulkMemory+","+features.SIMD)
	s := features.FromEnvironment()
	require.True(t, s.Have(features.BulkMemory))
	require.True(t, s.Have(features.SIMD))
	require.False(t, s.Have(features.Threads))
}

func TestList(t *testing.T) {
	s := &features.Set{}
	s.Enable(features.SIMD, features.Threads)
	require.ElementsMatch(t, []string{features.SIMD, features.Threads}, s.List())
}
