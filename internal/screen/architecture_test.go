package screen

import (
	"testing"

	"petcore/internal/testutil"
)

// Screens talk to the backend through transport only.
func TestScreensDoNotReachBackend(t *testing.T) {
	testutil.AssertNoTransitiveDependency(t, "petcore/internal/screen",
		testutil.Under(
			"petcore/internal/server",
			"petcore/internal/infra",
			"petcore/internal/storage",
			"petcore/internal/blob",
		),
		"screens are client code")
}
