package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causetrail/internal/cause"
)

func TestParseRef(t *testing.T) {
	project, number, err := ParseRef("folder/job#12")
	require.NoError(t, err)
	assert.Equal(t, "folder/job", project)
	assert.Equal(t, 12, number)

	project, number, err = ParseRef("c#sharp#3")
	require.NoError(t, err)
	assert.Equal(t, "c#sharp", project)
	assert.Equal(t, 3, number)

	for _, bad := range []string{"", "a", "a#", "#1", "a#0", "a#-2", "a#x"} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, cause.ErrInvalidArgument, bad)
	}
}
