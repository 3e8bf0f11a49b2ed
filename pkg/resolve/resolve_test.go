package resolve_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mergefiles/mergefiles/pkg/resolve"
	"github.com/mergefiles/mergefiles/pkg/types"
)

func meta(mtime time.Time) *types.FileMeta {
	return &types.FileMeta{Size: 1, ModTime: mtime}
}

func TestDecide(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	older := base.Add(-time.Hour)
	newer := base.Add(time.Hour)

	tests := []struct {
		name   string
		policy types.Policy
		src    *types.FileMeta
		dst    *types.FileMeta
		want   types.Decision
	}{
		{"always overwrite wins regardless of times", types.AlwaysOverwrite, meta(older), meta(newer), types.Overwrite},
		{"always overwrite with no metadata", types.AlwaysOverwrite, nil, nil, types.Overwrite},
		{"never overwrite retains destination", types.NeverOverwrite, meta(newer), meta(older), types.Skip},
		{"newer source wins", types.NewerWins, meta(newer), meta(base), types.Overwrite},
		{"older source skips", types.NewerWins, meta(older), meta(base), types.Skip},
		{"equal timestamps retain destination", types.NewerWins, meta(base), meta(base), types.Skip},
		{"missing source metadata retains destination", types.NewerWins, nil, meta(base), types.Skip},
		{"missing dest metadata retains destination", types.NewerWins, meta(base), nil, types.Skip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve.Decide("a/b.txt", tt.policy, tt.src, tt.dst)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	src := meta(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	dst := meta(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))

	first := resolve.Decide("x.txt", types.NewerWins, src, dst)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, resolve.Decide("x.txt", types.NewerWins, src, dst))
	}
}
