package native

import (
	"testing"

	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	testCases := []struct {
		tag      string
		abi      string
		platform string
	}{
		{"cpython-312-x86_64-linux-gnu", "cp312", "x86_64-linux-gnu"},
		{"cpython-313t-aarch64-linux-gnu", "cp313t", "aarch64-linux-gnu"},
		{"cpython-311-darwin", "cp311", "darwin"},
		{"cp312-x86_64-linux", "cp312", "x86_64-linux"},
		{"cp312-win_amd64", "cp312", "win_amd64"},
		{"pypy310-pp73-x86_64-linux-gnu", "pypy310-pp73", "x86_64-linux-gnu"},
		{"abi3", "abi3", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.tag, func(t *testing.T) {
			got, err := ParseTag(tc.tag)
			require.NoError(t, err)
			assert.Equal(t, model.PlatformDescriptor{ABITag: tc.abi, PlatformTag: tc.platform}, got)
		})
	}

	for _, bad := range []string{"", "cpython-", "linux", "x86_64-linux-gnu"} {
		_, err := ParseTag(bad)
		assert.Error(t, err, "tag %q", bad)
	}
}

func TestParseExtSuffix(t *testing.T) {
	got, err := ParseExtSuffix(".cpython-311-x86_64-linux-gnu.so")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformDescriptor{ABITag: "cp311", PlatformTag: "x86_64-linux-gnu"}, got)

	got, err = ParseExtSuffix(".cp312-win_amd64.pyd")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformDescriptor{ABITag: "cp312", PlatformTag: "win_amd64"}, got)

	_, err = ParseExtSuffix(".py")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)
	dep := model.DependencySpec{Name: "numpy", HasNativeComponents: true}
	target := model.PlatformDescriptor{ABITag: "cp311", PlatformTag: "x86_64-linux"}

	t.Run("mismatched ABI is flagged", func(t *testing.T) {
		records := r.Resolve(dep, []string{"core/_multiarray.cp312-x86_64-linux.so"}, target)
		require.Len(t, records, 1)
		assert.Equal(t, model.NativeArtifactRecord{
			Package:       "numpy",
			FilePath:      "core/_multiarray.cp312-x86_64-linux.so",
			ABITag:        "cp312",
			PlatformTag:   "x86_64-linux",
			MatchesTarget: false,
		}, records[0])
	})

	t.Run("matching ABI and platform", func(t *testing.T) {
		records := r.Resolve(dep, []string{"_umath.cp311-x86_64-linux.so"}, target)
		require.Len(t, records, 1)
		assert.True(t, records[0].MatchesTarget)
	})

	t.Run("platform mismatch", func(t *testing.T) {
		records := r.Resolve(dep, []string{"_umath.cp311-aarch64-linux.so"}, target)
		require.Len(t, records, 1)
		assert.False(t, records[0].MatchesTarget)
	})

	t.Run("untagged and non-native files are skipped", func(t *testing.T) {
		records := r.Resolve(dep, []string{
			"__init__.py",
			".libs/libopenblas64_p-r0.so",
			"core/_umath.cpython-311-x86_64-linux.so",
			"README.md",
		}, target)
		require.Len(t, records, 1)
		assert.Equal(t, "core/_umath.cpython-311-x86_64-linux.so", records[0].FilePath)
		assert.True(t, records[0].MatchesTarget)
	})

	t.Run("pure dependency yields empty list", func(t *testing.T) {
		records := r.Resolve(model.DependencySpec{Name: "six"}, []string{"six.py"}, target)
		assert.NotNil(t, records)
		assert.Empty(t, records)
		assert.Empty(t, r.Resolve(dep, nil, target))
	})

	t.Run("stable ABI matches any CPython target", func(t *testing.T) {
		records := r.Resolve(dep, []string{"_cffi_backend.abi3.so"}, target)
		require.Len(t, records, 1)
		assert.True(t, records[0].MatchesTarget)

		pypy := model.PlatformDescriptor{ABITag: "pypy310-pp73", PlatformTag: "x86_64-linux-gnu"}
		records = r.Resolve(dep, []string{"_cffi_backend.abi3.so"}, pypy)
		assert.False(t, records[0].MatchesTarget)
	})

	t.Run("records sorted by path", func(t *testing.T) {
		records := r.Resolve(dep, []string{
			"z/_b.cp311-x86_64-linux.so",
			"a/_a.cp311-x86_64-linux.so",
		}, target)
		require.Len(t, records, 2)
		assert.Equal(t, "a/_a.cp311-x86_64-linux.so", records[0].FilePath)
	})
}

func TestNewResolver_Patterns(t *testing.T) {
	r, err := NewResolver("**/*.pyd")
	require.NoError(t, err)
	records := r.Resolve(model.DependencySpec{Name: "x"}, []string{
		"pkg/_a.cp312-win_amd64.pyd",
		"pkg/_b.cp312-x86_64-linux.so",
	}, model.PlatformDescriptor{ABITag: "cp312", PlatformTag: "win_amd64"})
	require.Len(t, records, 1)
	assert.True(t, records[0].MatchesTarget)

	_, err = NewResolver("[unterminated")
	assert.Error(t, err)
}

func TestMissingLibc(t *testing.T) {
	testCases := []struct {
		tag  string
		want bool
	}{
		{"cp312-x86_64-linux", true},
		{"cp312-aarch64-linux", true},
		{"cpython-312-x86_64-linux-gnu", false},
		{"cp312-x86_64-linux-musl", false},
		{"cp312-win_amd64", false},
		{"cpython-311-darwin", false},
		{"abi3", false},
	}
	for _, tc := range testCases {
		t.Run(tc.tag, func(t *testing.T) {
			d, err := ParseTag(tc.tag)
			require.NoError(t, err)
			assert.Equal(t, tc.want, MissingLibc(d))
		})
	}

	// A gnu build never matches a target written without the suffix.
	target, err := ParseTag("cp312-x86_64-linux")
	require.NoError(t, err)
	got, ok := parseFilename("_speedups.cpython-312-x86_64-linux-gnu.so")
	require.True(t, ok)
	assert.False(t, Matches(got, target))
}
