package slots

import (
	"testing"

	"petcore/internal/testutil"
)

func TestSlotsStayPure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ThirdParty, "slot math has no library dependencies")
	testutil.AssertNoTransitiveDependency(t, "petcore/internal/slots",
		testutil.Under("petcore/internal/transport", "petcore/internal/server", "petcore/internal/infra"),
		"slot math must not reach I/O layers")
}
