package fs_test

import (
	"testing"

	"github.com/mirrorpack/mirrorpack/internal/data"
	"github.com/mirrorpack/mirrorpack/internal/fs"
	rtest "github.com/mirrorpack/mirrorpack/internal/test"
)

func TestPolicyEligible(t *testing.T) {
	var tests = []struct {
		policy fs.Policy
		kind   data.Kind
		want   bool
	}{
		{fs.MinimalPolicy, data.KindRegular, true},
		{fs.MinimalPolicy, data.KindDirectory, true},
		{fs.MinimalPolicy, data.KindSymlink, true},
		{fs.MinimalPolicy, data.KindFifo, false},
		{fs.MinimalPolicy, data.KindBlockDevice, false},
		{fs.MinimalPolicy, data.KindCharDevice, false},
		{fs.MinimalPolicy, data.KindSocket, false},
		{fs.FifoPolicy, data.KindFifo, true},
		{fs.FifoPolicy, data.KindSocket, false},
		{fs.FifoPolicy.Without(data.KindFifo), data.KindFifo, false},
		{fs.Policy(0), data.KindRegular, false},
		{fs.FifoPolicy, data.Kind(42), false},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			got := test.policy.Eligible(test.kind)
			if got != test.want {
				t.Errorf("%v.Eligible(%v) = %v, want %v", test.policy, test.kind, got, test.want)
			}
		})
	}
}

func TestPolicyString(t *testing.T) {
	rtest.Equals(t, "file,dir,symlink", fs.MinimalPolicy.String())
	rtest.Equals(t, "file,dir,symlink,fifo", fs.FifoPolicy.String())
	rtest.Equals(t, "", fs.Policy(0).String())
}
