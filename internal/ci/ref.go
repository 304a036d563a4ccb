package ci

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/causetrail/internal/cause"
)

// ParseRef parses a "project#number" build reference. Project names may
// themselves contain '#'; the last one separates the number.
func ParseRef(ref string) (project string, number int, err error) {
	i := strings.LastIndexByte(ref, '#')
	if i < 0 {
		return "", 0, fmt.Errorf("%w: build reference %q is not project#number", cause.ErrInvalidArgument, ref)
	}
	project = ref[:i]
	number, err = strconv.Atoi(ref[i+1:])
	if err != nil || project == "" || number < 1 {
		return "", 0, fmt.Errorf("%w: build reference %q is not project#number", cause.ErrInvalidArgument, ref)
	}
	return project, number, nil
}
