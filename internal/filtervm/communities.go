package filtervm

import (
	"fmt"

	"github.com/yanet-platform/mrtfilter/internal/bgpattr"
)

// packCommunity canonicalizes any of the four community variants into a
// comparable string key, for COMMEXACT's set-equality check.
func packCommunity(v any) string {
	switch c := v.(type) {
	case bgpattr.Community:
		return fmt.Sprintf("r:%08x", uint32(c))
	case bgpattr.ExtCommunity:
		return "e:" + string(c[:])
	case bgpattr.ExtCommunityV6:
		return "e6:" + string(c[:])
	case bgpattr.LargeCommunity:
		return fmt.Sprintf("l:%08x:%08x:%08x", c.GlobalAdministrator, c.LocalDataPart1, c.LocalDataPart2)
	default:
		return ""
	}
}
